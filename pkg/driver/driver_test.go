package driver_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/sexpvm/pkg/driver"
)

func runSource(t *testing.T, source string, opts driver.Options) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	opts.Stdout = &stdout
	opts.Stderr = &stderr
	err := driver.Run(source, opts)
	return stdout.String(), stderr.String(), err
}

func TestDriverRunsArithmeticAndPrints(t *testing.T) {
	out, _, err := runSource(t, `(println (+ 1 2))`, driver.Options{})
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestDriverDefineAndLoad(t *testing.T) {
	out, _, err := runSource(t, `(define x 10) (println (+ x 5))`, driver.Options{})
	require.NoError(t, err)
	assert.Equal(t, "15\n", out)
}

func TestDriverWhileLoop(t *testing.T) {
	out, _, err := runSource(t,
		`(define i 0) (while (< i 3) (do (println i) (define i (+ i 1))))`,
		driver.Options{})
	require.NoError(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestDriverIfBranches(t *testing.T) {
	out, _, err := runSource(t, `(println (if (> 2 1) 100 200))`, driver.Options{})
	require.NoError(t, err)
	assert.Equal(t, "100\n", out)
}

func TestDriverConcatAndSubstr(t *testing.T) {
	out, _, err := runSource(t,
		`(println (concat "foo" "bar" "baz")) (println (substr "hello" 1 3))`,
		driver.Options{})
	require.NoError(t, err)
	assert.Equal(t, "foobarbaz\nell\n", out)
}

func TestDriverListForms(t *testing.T) {
	out, _, err := runSource(t,
		`(println (list-get (list-append (list 1 2) 3) 2))`,
		driver.Options{})
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestDriverListMutatorsLeaveOriginalObservablyUnchanged(t *testing.T) {
	out, _, err := runSource(t, `
		(define xs (list 1 2 3))
		(define ys (list-set xs 1 99))
		(define zs (list-remove xs 0))
		(define ws (list-sublist xs 1 2))
		(println (list-get xs 1))
		(println (list-len xs))
		(println (list-get ys 1))
		(println (list-len zs))
		(println (list-get ws 0))
	`, driver.Options{})
	require.NoError(t, err)
	assert.Equal(t, "2\n3\n99\n2\n2\n", out)
}

func TestDriverLexErrorIsTagged(t *testing.T) {
	_, _, err := runSource(t, `(println "unterminated)`, driver.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Lexer error")
}

func TestDriverParseErrorIsTagged(t *testing.T) {
	_, _, err := runSource(t, `(println 1))`, driver.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Parser error")
}

func TestDriverCompileErrorIsTagged(t *testing.T) {
	_, _, err := runSource(t, `(frobnicate 1 2)`, driver.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Codegen error")
}

func TestDriverRuntimeErrorIsTagged(t *testing.T) {
	_, _, err := runSource(t, `(/ 1 0)`, driver.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Runtime error")
}

func TestDriverDebugFlagTracesToStderr(t *testing.T) {
	_, stderr, err := runSource(t, `(println 1)`, driver.Options{Debug: true})
	require.NoError(t, err)
	assert.NotEmpty(t, stderr)
}

func TestDriverDisasmFlagPrintsListingToStdout(t *testing.T) {
	out, _, err := runSource(t, `(println 1)`, driver.Options{Disasm: true})
	require.NoError(t, err)
	assert.Contains(t, out, "PUSH")
	assert.Contains(t, out, "HALT")
}
