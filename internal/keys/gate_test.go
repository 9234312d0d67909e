package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneredboot/orb-integration-hub/internal/db/models"
)

func TestCheckActivation_AllEnvironmentsCovered(t *testing.T) {
	now := time.Now()
	envs := []models.Environment{models.EnvironmentProduction, models.EnvironmentStaging}
	apiKeys := []*models.APIKey{
		testKey(models.EnvironmentProduction, models.KeyStatusActive, now),
		testKey(models.EnvironmentStaging, models.KeyStatusRotating, now),
	}

	result := CheckActivation(envs, apiKeys)

	assert.True(t, result.Satisfied())
	assert.Empty(t, result.Missing)
	assert.Equal(t, "", result.Message())
}

func TestCheckActivation_MissingEnvironment(t *testing.T) {
	now := time.Now()
	envs := []models.Environment{models.EnvironmentProduction, models.EnvironmentStaging}
	apiKeys := []*models.APIKey{
		testKey(models.EnvironmentProduction, models.KeyStatusActive, now),
	}

	result := CheckActivation(envs, apiKeys)

	require.False(t, result.Satisfied())
	assert.Equal(t, []models.Environment{models.EnvironmentStaging}, result.Missing)
	assert.Contains(t, result.Message(), "API keys are required for Staging")
	assert.Contains(t, result.Message(), "Security tab")
}

func TestCheckActivation_RevokedAndExpiredDoNotSatisfy(t *testing.T) {
	now := time.Now()
	envs := []models.Environment{models.EnvironmentProduction, models.EnvironmentStaging}
	apiKeys := []*models.APIKey{
		testKey(models.EnvironmentProduction, models.KeyStatusRevoked, now),
		testKey(models.EnvironmentStaging, models.KeyStatusExpired, now),
	}

	result := CheckActivation(envs, apiKeys)

	require.False(t, result.Satisfied())
	assert.Len(t, result.Missing, 2)
}

func TestCheckActivation_MissingOrderedByEnvironmentPriority(t *testing.T) {
	envs := []models.Environment{
		models.EnvironmentTest,
		models.EnvironmentProduction,
		models.EnvironmentDevelopment,
	}

	result := CheckActivation(envs, nil)

	require.Len(t, result.Missing, 3)
	assert.Equal(t, models.EnvironmentProduction, result.Missing[0])
	assert.Equal(t, models.EnvironmentDevelopment, result.Missing[1])
	assert.Equal(t, models.EnvironmentTest, result.Missing[2])
	assert.Contains(t, result.Message(), "Production, Development, Test")
}

func TestCheckActivation_NoEnvironmentsSelected(t *testing.T) {
	result := CheckActivation(nil, nil)
	assert.True(t, result.Satisfied())
}
