package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitBatches_SplitsOnBareGO(t *testing.T) {
	script := "CREATE TABLE dbo.Foo (Id INT);\nGO\nALTER TABLE dbo.Foo ADD Bar INT;\nGO\n"
	batches := SplitBatches(script)
	assert.Len(t, batches, 2)
	assert.Contains(t, batches[0], "CREATE TABLE")
	assert.Contains(t, batches[1], "ALTER TABLE")
}

func TestSplitBatches_IgnoresGOInsideStringLiteral(t *testing.T) {
	script := "INSERT INTO dbo.Foo (Name) VALUES ('GO');\nGO\n"
	batches := SplitBatches(script)
	assert.Len(t, batches, 1)
	assert.Contains(t, batches[0], "VALUES ('GO')")
}

func TestSplitBatches_IgnoresGOInsideBlockComment(t *testing.T) {
	script := "/* remember to say\nGO\nhere */\nSELECT 1;\nGO\n"
	batches := SplitBatches(script)
	assert.Len(t, batches, 1)
}

func TestSplitBatches_TrailingContentWithoutFinalGO(t *testing.T) {
	script := "CREATE TABLE dbo.Foo (Id INT);\nGO\nSELECT 1;\n"
	batches := SplitBatches(script)
	assert.Len(t, batches, 2)
	assert.Contains(t, batches[1], "SELECT 1")
}

func TestSplitBatches_IsCaseInsensitiveAndTrimsWhitespace(t *testing.T) {
	script := "SELECT 1;\n  go  \nSELECT 2;\n"
	batches := SplitBatches(script)
	assert.Len(t, batches, 2)
}
