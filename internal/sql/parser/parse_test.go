package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Load(t *testing.T) {
	stmt, err := Parse("LOAD foo FROM 'foo.tbl'")
	require.NoError(t, err)
	s, ok := stmt.(*LoadStmt)
	require.True(t, ok, "want *LoadStmt, got %T", stmt)
	assert.Equal(t, "foo", s.Table)
	assert.Equal(t, "foo.tbl", s.File)
	assert.False(t, s.WithIndex)
}

func TestParse_LoadWithIndex(t *testing.T) {
	stmt, err := Parse("LOAD foo FROM 'foo.tbl' WITH INDEX")
	require.NoError(t, err)
	s := stmt.(*LoadStmt)
	assert.True(t, s.WithIndex)
}

func TestParse_LoadMissingFrom(t *testing.T) {
	_, err := Parse("LOAD foo 'foo.tbl'")
	require.Error(t, err)
}

func TestParse_SelectStar(t *testing.T) {
	stmt, err := Parse("SELECT * FROM foo")
	require.NoError(t, err)
	s := stmt.(*SelectStmt)
	assert.Equal(t, TargetStar, s.Target)
	assert.Equal(t, "foo", s.Table)
	assert.Empty(t, s.Where)
}

func TestParse_SelectCountStar(t *testing.T) {
	stmt, err := Parse("SELECT count(*) FROM foo")
	require.NoError(t, err)
	s := stmt.(*SelectStmt)
	assert.Equal(t, TargetCountStar, s.Target)
}

func TestParse_SelectKeyWithRangeConds(t *testing.T) {
	stmt, err := Parse("SELECT key FROM foo WHERE key >= 10 AND key < 20")
	require.NoError(t, err)
	s := stmt.(*SelectStmt)
	require.Len(t, s.Where, 2)
	assert.Equal(t, OpGE, s.Where[0].Op)
	assert.EqualValues(t, 10, s.Where[0].IntVal)
	assert.Equal(t, OpLT, s.Where[1].Op)
	assert.EqualValues(t, 20, s.Where[1].IntVal)
}

func TestParse_SelectValueCondString(t *testing.T) {
	stmt, err := Parse("SELECT value FROM foo WHERE value <> 'bar'")
	require.NoError(t, err)
	s := stmt.(*SelectStmt)
	require.Len(t, s.Where, 1)
	assert.Equal(t, OpNE, s.Where[0].Op)
	assert.True(t, s.Where[0].IsString)
	assert.Equal(t, "bar", s.Where[0].StrVal)
}

func TestParse_SelectCommaSeparatedConds(t *testing.T) {
	stmt, err := Parse("SELECT * FROM foo WHERE key = 5, value = 'x'")
	require.NoError(t, err)
	s := stmt.(*SelectStmt)
	require.Len(t, s.Where, 2)
}

func TestParse_UnsupportedStatement(t *testing.T) {
	_, err := Parse("DELETE FROM foo")
	require.Error(t, err)
}

func TestParse_BadOperator(t *testing.T) {
	_, err := Parse("SELECT * FROM foo WHERE key ~ 5")
	require.Error(t, err)
}
