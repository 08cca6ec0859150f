package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestInitializeFactoryWiresGlobalRepositories(t *testing.T) {
	InitializeFactory(&gorm.DB{})

	repos := GetGlobalRepositories()
	require.NotNil(t, repos)
	assert.NotNil(t, repos.Event)
	assert.NotNil(t, repos.TelegramLink)
	assert.NotNil(t, repos.InvitePool)
	assert.NotNil(t, repos.Funnel)
	assert.NotNil(t, repos.Pushcut)
	assert.NotNil(t, repos.MessageLog)
}

func TestInitializeFactoryIsIdempotent(t *testing.T) {
	InitializeFactory(&gorm.DB{})
	repos := GetGlobalRepositories()

	InitializeFactory(&gorm.DB{})
	assert.Same(t, repos, GetGlobalRepositories())
}
