package auth

import (
	"os"
	"testing"
)

func TestMain(m *testing.M) {
	os.Setenv("ORB_JWT_SECRET", "test-jwt-secret-that-is-32-chars!!")
	os.Exit(m.Run())
}
