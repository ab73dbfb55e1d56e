package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestDiscoverInputFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.xml"))
	touch(t, filepath.Join(dir, "a.XML"))
	touch(t, filepath.Join(dir, "lotes", "janeiro.zip"))
	touch(t, filepath.Join(dir, "notes.txt"))

	fm := NewFileManager(dir, t.TempDir())

	files, err := fm.DiscoverInputFiles(".xml", ".zip")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.XML"),
		filepath.Join(dir, "b.xml"),
		filepath.Join(dir, "lotes", "janeiro.zip"),
	}, files)

	all, err := fm.DiscoverInputFiles()
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = NewFileManager(filepath.Join(dir, "missing"), "").DiscoverInputFiles(".xml")
	assert.Error(t, err)
}

func TestEnsureDirectories(t *testing.T) {
	root := t.TempDir()
	fm := NewFileManager(filepath.Join(root, "in"), filepath.Join(root, "out", "reports"))

	require.NoError(t, fm.EnsureDirectories())
	assert.DirExists(t, fm.InputDir)
	assert.DirExists(t, fm.OutputDir)
}

func TestGenerateOutputFileName(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 22, 0, time.UTC)

	testCases := []struct {
		name   string
		format string
		params map[string]string
		want   string
	}{
		{"date", "ISA_Relatorio_Auditoria_{date}.xlsx", nil, "ISA_Relatorio_Auditoria_2024-01-15.xlsx"},
		{"timestamp without extension", "auditoria_{timestamp}", nil, "auditoria_20240115_143022.xlsx"},
		{"custom param", "cte_{key}_{time}.XLSX", map[string]string{"key": "3524"}, "cte_3524_143022.XLSX"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, generateOutputFileName(tc.format, tc.params, now))
		})
	}

	withID := GenerateOutputFileName("r_{uuid}", nil)
	assert.True(t, strings.HasPrefix(withID, "r_"))
	assert.Len(t, withID, len("r_")+36+len(".xlsx"))
}

func TestWriteErrorLog(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteErrorLog(nil, dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = WriteErrorLog([]ErrorLogEntry{
		{Timestamp: time.Now(), FileName: "broken.xml", ErrorType: "malformed_xml", ErrorMessage: "unexpected EOF"},
		{Timestamp: time.Now(), FileName: "nfe.xml", ErrorType: "missing_root", ErrorMessage: "infCte element not found"},
	}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Total Errors: 2")
	assert.Contains(t, content, "broken.xml")
	assert.Contains(t, content, "missing_root")
	assert.Contains(t, content, "End of Error Log")
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()

	path, err := WriteSummaryLog(ProcessingSummary{
		Version:    "1.2.3",
		StartTime:  start,
		EndTime:    start.Add(2 * time.Second),
		TotalFiles: 2,
		Documents:  5,
		Records:    4,
		Rejected:   1,
		Reconciled: 3,
		Mismatched: 1,
		ReportFile: "ISA_Relatorio_Auditoria_2024-01-15.xlsx",
		Mismatches: []MismatchInfo{{SourceFile: "5.xml", DocumentNumber: "5", Declared: "999,00", Audited: "110,00"}},
		FailedFilesList: []FailedFileInfo{
			{InputFile: "broken.xml", ErrorMessage: "malformed"},
		},
	}, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Documents:          5")
	assert.Contains(t, content, "Mismatched:         1")
	assert.Contains(t, content, "Declared: 999,00")
	assert.Contains(t, content, "File:  broken.xml")
	assert.Contains(t, content, "Duration:       2s")
	assert.Contains(t, content, "Version:        1.2.3")
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.xml")
	assert.False(t, FileExists(path))
	touch(t, path)
	assert.True(t, FileExists(path))
}
