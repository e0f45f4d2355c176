package main

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCalcNet(t *testing.T) {
	out, err := run(t, "calc", "net", "119")
	require.NoError(t, err)
	assert.Contains(t, out, "100,00 €")
	assert.Contains(t, out, "19,00 €")

	out, err = run(t, "calc", "net", "10,70", "--rate", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "VAT 7%: 0,70 €")
}

func TestCalcGross(t *testing.T) {
	out, err := run(t, "calc", "gross", "100", "-r", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "107,00 €")
}

func TestCalcMargin(t *testing.T) {
	out, err := run(t, "calc", "margin", "100", "80")
	require.NoError(t, err)
	assert.Contains(t, out, "20,00 €")
	assert.Contains(t, out, "medium")

	out, err = run(t, "calc", "margin", "100", "80", "--good", "15")
	require.NoError(t, err)
	assert.Contains(t, out, "good")
}

func TestCalcRejectsBadInput(t *testing.T) {
	_, err := run(t, "calc", "net", "119", "--rate", "16")
	assert.Error(t, err)

	_, err = run(t, "calc", "net", "-5")
	assert.Error(t, err)
}

func TestInvoicesSweepInMemory(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HANDWERK_POSTGRES_DSN", "")

	out, err := run(t, "invoices", "sweep-overdue", "--as-of", "2026-05-01")
	require.NoError(t, err)
	assert.Contains(t, out, "0 invoices marked overdue")
}

func TestFinanceReportRequiresPeriod(t *testing.T) {
	_, err := run(t, "finance", "vat-report", "--from", "2026-01-01")
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
