package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/instrumenti/internal/auth"
	"github.com/erazemk/instrumenti/internal/db"
	"github.com/erazemk/instrumenti/internal/model"
	"github.com/erazemk/instrumenti/internal/store"
)

func TestEnsureAdminOnlyOnEmptyDatabase(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	password, err := ensureAdmin(ctx, database, "root")
	require.NoError(t, err)
	require.Len(t, password, 16)

	user, err := store.GetUserByUsername(ctx, database, "root")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.True(t, auth.CheckPassword(user.PasswordHash, password))

	again, err := ensureAdmin(ctx, database, "root")
	require.NoError(t, err)
	assert.Empty(t, again)

	n, err := store.CountUsers(ctx, database)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGeneratePasswordDistinct(t *testing.T) {
	a, err := generatePassword(16)
	require.NoError(t, err)
	b, err := generatePassword(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPrintOutput(t *testing.T) {
	headers := []string{"id", "instrumento"}
	rows := [][]string{{"1", "Balanza"}}
	data := []map[string]string{{"id": "1", "instrumento": "Balanza"}}

	var buf bytes.Buffer
	require.NoError(t, printOutput(&buf, outputTable, data, headers, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], "Balanza")

	buf.Reset()
	require.NoError(t, printOutput(&buf, outputYAML, data, headers, rows))
	assert.Contains(t, buf.String(), "instrumento: Balanza")

	buf.Reset()
	require.NoError(t, printOutput(&buf, outputJSON, data, headers, rows))
	assert.Contains(t, buf.String(), `"instrumento": "Balanza"`)

	_, err := parseOutputFormat("xml")
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Centrí...", truncate("Centrífuga refrigerada", 9))
}

func TestWriteOutputToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	err := writeOutput(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "id\n1\n")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data))
}

func TestWriteOutputReportsFailures(t *testing.T) {
	noop := func(io.Writer) error { return nil }
	err := writeOutput(filepath.Join(t.TempDir(), "missing", "out.csv"), noop)
	assert.Error(t, err)

	boom := errors.New("boom")
	err = writeOutput(filepath.Join(t.TempDir(), "out.csv"), func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
}
