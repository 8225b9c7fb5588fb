package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/causeway/internal/testutil"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeTrace writes name.trace and a name.sym holding the fixture symbols.
func writeTrace(t *testing.T, dir, name string, chunks ...[]byte) string {
	t.Helper()

	var data []byte
	for _, c := range chunks {
		data = append(data, c...)
	}
	path := filepath.Join(dir, name+".trace")
	require.NoError(t, os.WriteFile(path, data, 0644))

	ids, values := testutil.Symbols()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".sym"), []byte(formatSymbols(ids, values)), 0644))
	return path
}
