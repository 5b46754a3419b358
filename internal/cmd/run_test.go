package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gunoch/anonimatizacao/internal/testutil"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flag values outlive Execute; clear them so tests don't leak state.
	runMode, runSessionID, runOutDir, runNoNER = "", "", "", false
	revertOut = ""
	validateJSON = false
	doctorOffline, doctorJSON = false, false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRunCommand_AnonymizeRevertRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANON_DATA_DIR", dir)
	t.Setenv("ANON_VALIDATOR_PROVIDER", "none")

	ner := testutil.NewNERServer([]testutil.NEREntity{
		{Label: "PER", Text: "João Silva"},
		{Label: "LOC", Text: "Curitiba"},
	})
	t.Cleanup(ner.Close)
	t.Setenv("ANON_NER_BASE_URL", ner.URL)

	original := "João Silva, CPF 123.456.789-09, mora em Curitiba."
	inputPath := filepath.Join(dir, "laudo.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte(original), 0o600))

	out, err := executeCommand(t, "run", "--mode", "PLACEHOLDER", inputPath)
	require.NoError(t, err)

	anonPath := filepath.Join(dir, "laudo.anon.txt")
	data, err := os.ReadFile(anonPath)
	require.NoError(t, err)
	anonymized := string(data)

	assert.NotContains(t, anonymized, "João Silva")
	assert.NotContains(t, anonymized, "123.456.789-09")
	assert.NotContains(t, anonymized, "Curitiba")
	assert.Contains(t, anonymized, "[PERSON_1]")
	assert.Contains(t, anonymized, "[ID_NUMBER_1]")
	assert.Contains(t, anonymized, "[ADDRESS_1]")

	sessionID := sessionFromOutput(t, out)

	_, err = executeCommand(t, "revert", sessionID, anonPath)
	require.NoError(t, err)

	restored, err := os.ReadFile(filepath.Join(dir, "laudo.restored.txt"))
	require.NoError(t, err)
	assert.Equal(t, original, string(restored))
}

func TestRunCommand_DegradesWithoutNER(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANON_DATA_DIR", dir)
	t.Setenv("ANON_VALIDATOR_PROVIDER", "none")
	t.Setenv("ANON_NER_BASE_URL", "http://127.0.0.1:1")

	inputPath := filepath.Join(dir, "nota.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("CPF do cliente: 529.982.247-25"), 0o600))

	_, err := executeCommand(t, "run", "--mode", "PLACEHOLDER", inputPath)
	require.NoError(t, err, "unreachable NER degrades, never fails")

	data, err := os.ReadFile(filepath.Join(dir, "nota.anon.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[ID_NUMBER_1]")
	assert.NotContains(t, string(data), "529.982.247-25")
}

func TestRunCommand_SessionReuseAcrossInvocations(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANON_DATA_DIR", dir)
	t.Setenv("ANON_VALIDATOR_PROVIDER", "none")

	first := filepath.Join(dir, "a.txt")
	second := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(first, []byte("CPF 123.456.789-09 informado."), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("Confirmado o CPF 123.456.789-09."), 0o600))

	out, err := executeCommand(t, "run", "--mode", "PLACEHOLDER", "--no-ner", first)
	require.NoError(t, err)
	sessionID := sessionFromOutput(t, out)

	_, err = executeCommand(t, "run", "--mode", "PLACEHOLDER", "--no-ner", "--session", sessionID, second)
	require.NoError(t, err)

	a, _ := os.ReadFile(filepath.Join(dir, "a.anon.txt"))
	b, _ := os.ReadFile(filepath.Join(dir, "b.anon.txt"))
	assert.Contains(t, string(a), "[ID_NUMBER_1]")
	assert.Contains(t, string(b), "[ID_NUMBER_1]", "resumed session reuses the same token")
}

func TestSessionsCommand_ListShowsSavedSession(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANON_DATA_DIR", dir)
	t.Setenv("ANON_VALIDATOR_PROVIDER", "none")

	inputPath := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(inputPath, []byte("RG 12.345.678-9 emitido."), 0o600))

	out, err := executeCommand(t, "run", "--mode", "PLACEHOLDER", "--no-ner", inputPath)
	require.NoError(t, err)
	sessionID := sessionFromOutput(t, out)

	out, err = executeCommand(t, "sessions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, sessionID)
	assert.Contains(t, out, "PLACEHOLDER")
}

func TestValidateCommand_CleanDocument(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANON_DATA_DIR", dir)

	llm := testutil.NewOpenAICompatibleServer("[]")
	t.Cleanup(llm.Close)
	t.Setenv("ANON_VALIDATOR_PROVIDER", "openai")
	t.Setenv("ANON_VALIDATOR_BASE_URL", llm.URL)
	t.Setenv("ANON_VALIDATOR_API_KEY", "test-key")

	anonPath := filepath.Join(dir, "doc.anon.txt")
	require.NoError(t, os.WriteFile(anonPath,
		[]byte("[PERSON_1] compareceu com o documento [ID_NUMBER_1]."), 0o600))

	out, err := executeCommand(t, "validate", anonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "risk LOW")
}

func TestValidateCommand_ResidualPIIFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("ANON_DATA_DIR", dir)

	llm := testutil.NewOpenAICompatibleServer("[]")
	t.Cleanup(llm.Close)
	t.Setenv("ANON_VALIDATOR_PROVIDER", "openai")
	t.Setenv("ANON_VALIDATOR_BASE_URL", llm.URL)
	t.Setenv("ANON_VALIDATOR_API_KEY", "test-key")

	anonPath := filepath.Join(dir, "leaky.anon.txt")
	require.NoError(t, os.WriteFile(anonPath,
		[]byte("[PERSON_1] informou o CPF 123.456.789-09."), 0o600))

	out, err := executeCommand(t, "validate", anonPath)
	require.Error(t, err)
	assert.Contains(t, out, "123.456.789-09")
}

var sessionLine = regexp.MustCompile(`Session: (\S+)`)

func sessionFromOutput(t *testing.T, out string) string {
	t.Helper()
	m := sessionLine.FindStringSubmatch(out)
	require.NotNil(t, m, "output should name the session: %s", strings.TrimSpace(out))
	return m[1]
}
