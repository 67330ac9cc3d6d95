package scriptast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeclarationAndAssignment(t *testing.T) {
	root, err := Parse(`NUMBER x, y[3]; x = 1 + 2 * 3; y[1] = x;`)
	require.NoError(t, err)
	require.Len(t, root.Children, 3)
	decls := root.Children[0]
	require.Equal(t, KindSeq, decls.Kind)
	require.Len(t, decls.Children, 2)
	assert.Equal(t, KindDeclScalar, decls.Children[0].Kind)
	assert.Equal(t, KindDeclArray, decls.Children[1].Kind)
	assert.Equal(t, KindAssignScalar, root.Children[1].Kind)
	assert.Equal(t, KindAssignElement, root.Children[2].Kind)
}

func TestParseIfElseAndRequire(t *testing.T) {
	root, err := Parse(`IF x > 0 THEN REQUIRE(x > 0) ELSE y = 1;`)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)
	ifNode := root.Children[0]
	assert.Equal(t, KindIf, ifNode.Kind)
	assert.Equal(t, KindGt, ifNode.Children[0].Kind)
	assert.Equal(t, KindRequire, ifNode.Children[1].Kind)
	assert.Equal(t, KindAssignScalar, ifNode.Children[2].Kind)
}

func TestParseForLoop(t *testing.T) {
	root, err := Parse(`FOR i = 1 TO 10 STEP 1 DO { x = x + i; };`)
	require.NoError(t, err)
	forNode := root.Children[0]
	assert.Equal(t, KindFor, forNode.Kind)
	assert.Equal(t, "i", forNode.Name)
	assert.Len(t, forNode.Children, 4)
}

func TestParseCallInsideMultiplication(t *testing.T) {
	root, err := Parse(`x = pay(1.0, today, T, "USD") * 0.95;`)
	require.NoError(t, err)
	assign := root.Children[0]
	mul := assign.Children[0]
	assert.Equal(t, KindMul, mul.Kind)
	assert.Equal(t, KindCall, mul.Children[0].Kind)
	assert.Equal(t, "pay", mul.Children[0].Name)
}

func TestParseDateIndexOperator(t *testing.T) {
	root, err := Parse(`x = DATEINDEX(obs, sched, GEQ);`)
	require.NoError(t, err)
	call := root.Children[0].Children[0]
	assert.Equal(t, KindCall, call.Kind)
	assert.Equal(t, "GEQ", call.Op)
}

func TestResetCacheClearsSubtree(t *testing.T) {
	root, err := Parse(`x = y + 1;`)
	require.NoError(t, err)
	ident := root.Children[0].Children[0].Children[0]
	ident.CacheResolution(false)
	_, ok := ident.CachedResolution()
	require.True(t, ok)
	root.ResetCache()
	_, ok = ident.CachedResolution()
	assert.False(t, ok)
}

func TestMalformedForStepZeroParsesButEngineRejects(t *testing.T) {
	// The parser accepts STEP 0 syntactically; rejection is an engine-level
	// semantic check, exercised in the scriptengine package.
	_, err := Parse(`FOR i = 1 TO 10 STEP 0 DO x = 1;`)
	require.NoError(t, err)
}
