package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewQueriesPicksUpTheGlobalConnection(t *testing.T) {
	SetGlobalDB(nil)
	q := NewQueries()
	assert.Nil(t, q.GetDB())
}

func TestSetDBOverridesAnInstancesConnection(t *testing.T) {
	q := NewQueries()
	q.SetDB(nil)
	assert.Nil(t, q.GetDB())
}

func TestCloseIsANoOpWithoutAConnection(t *testing.T) {
	q := &Queries{}
	assert.NoError(t, q.Close())
}

func TestPingWithoutAConnectionReturnsNilRatherThanPanicking(t *testing.T) {
	q := &Queries{}
	assert.NoError(t, q.Ping())
}
