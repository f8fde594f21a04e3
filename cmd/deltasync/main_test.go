package main

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI runs the command line with an empty config directory.
func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func randomData(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return b
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// edited returns data with a few bytes changed near the middle.
func edited(data []byte) []byte {
	out := bytes.Clone(data)
	mid := len(out) / 2
	copy(out[mid:], "EDITED")
	return out
}

func TestVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "deltasync dev\n", stdout)
}

func TestUnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Error:")
}

func TestSyncSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	old := randomData(t, 32*1024)
	writeFile(t, dst, old)
	writeFile(t, src, edited(old))

	code, stdout, stderr := runCLI(t, "sync", "--block-size", "1K", src, dst)
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, edited(old), readFile(t, dst))
	assert.Contains(t, stdout, "total size is 32768")
	assert.Contains(t, stdout, "speedup is")
	assert.Contains(t, stderr, "done ✓")
}

func TestSyncIntoDirectory(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	dstDir := filepath.Join(dir, "dst")
	require.NoError(t, os.Mkdir(srcDir, 0o755))
	require.NoError(t, os.Mkdir(dstDir, 0o755))

	a := randomData(t, 5000)
	b := randomData(t, 9000)
	writeFile(t, filepath.Join(srcDir, "a"), a)
	writeFile(t, filepath.Join(srcDir, "b"), edited(b))
	writeFile(t, filepath.Join(dstDir, "b"), b)

	code, _, stderr := runCLI(t, "sync", "--verify", "--backup",
		filepath.Join(srcDir, "a"), filepath.Join(srcDir, "b"), dstDir)
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, a, readFile(t, filepath.Join(dstDir, "a")))
	assert.Equal(t, edited(b), readFile(t, filepath.Join(dstDir, "b")))
	assert.Equal(t, b, readFile(t, filepath.Join(dstDir, "b~")))
}

func TestSyncQuiet(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, src, []byte("quiet please"))

	code, stdout, stderr := runCLI(t, "sync", "-q", src, filepath.Join(dir, "dst"))
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
	assert.Equal(t, "quiet please", string(readFile(t, filepath.Join(dir, "dst"))))
}

func TestSyncUsageErrors(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, src, []byte("x"))
	notDir := filepath.Join(dir, "file")
	writeFile(t, notDir, []byte("y"))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"one argument", []string{"sync", src}, "requires at least 2 arg"},
		{"missing source", []string{"sync", filepath.Join(dir, "nope"), notDir}, "source"},
		{"directory source", []string{"sync", dir, notDir}, "not a regular file"},
		{"several sources to a file", []string{"sync", src, notDir, filepath.Join(dir, "z")}, "existing directory"},
		{"bad bwlimit", []string{"sync", "--bwlimit", "fast", src, notDir}, "invalid --bwlimit"},
		{"bad block size", []string{"sync", "--block-size", "-3", src, notDir}, "block-size"},
		{"duplicate targets", []string{"sync", src, src, dir}, "both map to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
	assert.Equal(t, "y", string(readFile(t, notDir)))
}

func TestSyncTransferFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeFile(t, src, []byte("data"))

	code, _, stderr := runCLI(t, "sync", src, filepath.Join(dir, "missing-dir", "dst"))
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "sync failed")
}

func TestSyncConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgHome := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cfgHome, "deltasync"), 0o755))
	writeFile(t, filepath.Join(cfgHome, "deltasync", "config.toml"), []byte(`
[defaults]
backup = true
suffix = ".orig"
block_size = "auto"
`))

	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, []byte("new"))
	writeFile(t, dst, []byte("old"))

	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	var out, errOut bytes.Buffer
	code := run([]string{"sync", src, dst}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	assert.Equal(t, "new", string(readFile(t, dst)))
	assert.Equal(t, "old", string(readFile(t, dst+".orig")))

	// Flags win over the config file.
	writeFile(t, src, []byte("newer"))
	code = run([]string{"sync", "--suffix", ".flag", src, dst}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Equal(t, "new", string(readFile(t, dst+".flag")))
}

func TestMalformedConfigIsAUsageError(t *testing.T) {
	dir := t.TempDir()
	cfgHome := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(cfgHome, "deltasync"), 0o755))
	writeFile(t, filepath.Join(cfgHome, "deltasync", "config.toml"), []byte("[defaults\nbackup = yes\n"))

	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	writeFile(t, src, []byte("new"))

	t.Setenv("XDG_CONFIG_HOME", cfgHome)
	var out, errOut bytes.Buffer
	code := run([]string{"sync", src, dst}, &out, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "load config")
	_, err := os.Stat(dst)
	assert.ErrorIs(t, err, os.ErrNotExist, "nothing is transferred")
}

func TestSyncChecksumSkipsUpToDate(t *testing.T) {
	dir := t.TempDir()
	srcDir := filepath.Join(dir, "src")
	dstDir := filepath.Join(dir, "dst")
	require.NoError(t, os.Mkdir(srcDir, 0o755))
	require.NoError(t, os.Mkdir(dstDir, 0o755))

	same := randomData(t, 4000)
	changed := randomData(t, 4000)
	writeFile(t, filepath.Join(srcDir, "same"), same)
	writeFile(t, filepath.Join(dstDir, "same"), same)
	writeFile(t, filepath.Join(srcDir, "changed"), edited(changed))
	writeFile(t, filepath.Join(dstDir, "changed"), changed)

	code, stdout, stderr := runCLI(t, "sync", "--checksum", "--backup",
		filepath.Join(srcDir, "same"), filepath.Join(srcDir, "changed"), dstDir)
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, edited(changed), readFile(t, filepath.Join(dstDir, "changed")))
	assert.Equal(t, changed, readFile(t, filepath.Join(dstDir, "changed~")))
	_, err := os.Stat(filepath.Join(dstDir, "same~"))
	assert.ErrorIs(t, err, os.ErrNotExist, "an up to date file is not touched")
	assert.Contains(t, stdout, "total size is 4000")
	assert.Contains(t, stderr, "up to date")

	// Without the pre-check the same file goes through the transfer.
	code, _, stderr = runCLI(t, "sync", "--backup", filepath.Join(srcDir, "same"), dstDir)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, same, readFile(t, filepath.Join(dstDir, "same~")))
}

func TestSyncLogFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	logPath := filepath.Join(dir, "log.json")
	writeFile(t, src, []byte("logged"))

	code, _, stderr := runCLI(t, "sync", "--log", logPath, src, filepath.Join(dir, "dst"))
	require.Equal(t, 0, code, stderr)

	logged := string(readFile(t, logPath))
	assert.Contains(t, logged, `"msg":"deltasync.event"`)
	assert.Contains(t, logged, `"type":"FileReconstructed"`)
}

func TestSignatureDeltaPatch(t *testing.T) {
	dir := t.TempDir()
	basis := filepath.Join(dir, "basis")
	newFile := filepath.Join(dir, "new")
	sig := filepath.Join(dir, "basis.sig")
	dlt := filepath.Join(dir, "new.delta")
	out := filepath.Join(dir, "out")

	old := randomData(t, 64*1024)
	newData := append(edited(old), []byte("tail")...)
	writeFile(t, basis, old)
	writeFile(t, newFile, newData)

	code, _, stderr := runCLI(t, "signature", "--block-size", "2K", basis, sig)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "delta", sig, newFile, dlt)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "patch", basis, dlt, out)
	require.Equal(t, 0, code, stderr)

	assert.Equal(t, newData, readFile(t, out))

	fi, err := os.Stat(dlt)
	require.NoError(t, err)
	assert.Less(t, fi.Size(), int64(8*1024), "delta carries only the changes")

	// In place.
	code, _, stderr = runCLI(t, "patch", basis, dlt, basis)
	require.Equal(t, 0, code, stderr)
	assert.Equal(t, newData, readFile(t, basis))
}

func TestPatchRejectsCorruptDelta(t *testing.T) {
	dir := t.TempDir()
	basis := filepath.Join(dir, "basis")
	sig := filepath.Join(dir, "sig")
	dlt := filepath.Join(dir, "delta")
	out := filepath.Join(dir, "out")
	writeFile(t, basis, randomData(t, 4096))

	code, _, stderr := runCLI(t, "signature", basis, sig)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "delta", sig, basis, dlt)
	require.Equal(t, 0, code, stderr)

	data := readFile(t, dlt)
	data[len(data)/2] ^= 0xFF
	writeFile(t, dlt, data)

	code, _, stderr = runCLI(t, "patch", basis, dlt, out)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "corrupt")
	_, err := os.Stat(out)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestPatchRejectsWrongBasis(t *testing.T) {
	dir := t.TempDir()
	basis := filepath.Join(dir, "basis")
	other := filepath.Join(dir, "other")
	sig := filepath.Join(dir, "sig")
	dlt := filepath.Join(dir, "delta")
	writeFile(t, basis, randomData(t, 4096))
	writeFile(t, other, randomData(t, 100))

	code, _, stderr := runCLI(t, "signature", basis, sig)
	require.Equal(t, 0, code, stderr)
	code, _, stderr = runCLI(t, "delta", sig, basis, dlt)
	require.Equal(t, 0, code, stderr)

	code, _, stderr = runCLI(t, "patch", other, dlt, filepath.Join(dir, "out"))
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "delta was made against 4096")
}

func TestGenDocs(t *testing.T) {
	dir := t.TempDir()
	code, _, stderr := runCLI(t, "gen-docs", "--format", "markdown", "--dir", dir)
	require.Equal(t, 0, code, stderr)

	for _, name := range []string{"deltasync.md", "deltasync_sync.md", "deltasync_patch.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	code, _, _ = runCLI(t, "gen-docs", "--format", "pdf", "--dir", dir)
	assert.Equal(t, 2, code)
}
