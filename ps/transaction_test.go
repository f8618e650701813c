package ps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	persistence := newTestPersistence(t)

	log, err := persistence.Log(10)
	require.NoError(t, err)
	assert.Empty(t, log)

	start := time.Now().Add(-time.Minute)
	for _, sid := range []string{"1", "2", "3"} {
		_, err := persistence.AppendRows("Students", [][]string{{sid, "x", "1.0"}}, testIdentity)
		require.NoError(t, err)
	}

	log, err = persistence.Log(2)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, persistence.LatestTransaction().Id, log[0].Id)
	assert.Equal(t, "Insert 1 row(s) into Students", log[0].Message)
	assert.Equal(t, "test <test@test.com>", log[0].Author)
	assert.Len(t, log[0].ShortId(), 8)

	since, err := persistence.TransactionsSince(start)
	require.NoError(t, err)
	assert.Len(t, since, 3)
}
