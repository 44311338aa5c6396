package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "UPDATE", operationFromSQL("UPDATE affiliates SET total_clicks = total_clicks + 1"))
	assert.Equal(t, "SELECT", operationFromSQL("WITH x AS (SELECT 1) SELECT * FROM x"))
	assert.Equal(t, "INSERT", operationFromSQL("  insert into affiliate_clicks (id) values (?)"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}
