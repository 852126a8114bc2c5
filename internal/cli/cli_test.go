package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/incident-comms/internal/domain"
	"github.com/bissquit/incident-comms/internal/identifier"
	"github.com/bissquit/incident-comms/internal/lint"
	"github.com/bissquit/incident-comms/internal/render"
)

type result struct {
	stdout string
	stderr string
	code   int
}

// setupEnv points every invocation of the test at one sqlite file.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("COMMS_CONFIG", "")
	t.Setenv("COMMS_STORE__DRIVER", "sqlite")
	t.Setenv("COMMS_STORE__SQLITE__PATH", filepath.Join(dir, "comms.db"))
	t.Setenv("COMMS_LOG__LEVEL", "error")
	t.Setenv("COMMS_USER", "alice")
	return dir
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr)
	return result{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	res := run(t, args...)
	require.Equal(t, 0, res.code, "commsctl %v: %s", args, res.stderr)
	return res.stdout
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	assert.Contains(t, out, "commsctl ")
}

func TestUnknownCommand(t *testing.T) {
	setupEnv(t)
	res := run(t, "frobnicate")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "Error:")
}

func TestID(t *testing.T) {
	res := run(t, "id", "validate", "202501_01", "202501_01.02", "2025_1")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "202501_01\tvalid")
	assert.Contains(t, res.stdout, "202501_01.02\tvalid")
	assert.Contains(t, res.stdout, "2025_1\tinvalid")
	assert.Contains(t, res.stderr, "1 of 3")

	assert.Equal(t, "202501_03.01\n", mustRun(t, "id", "bump", "202501_03"))
	assert.Equal(t, 1, run(t, "id", "bump", "garbage").code)
}

func TestID_NewAssign(t *testing.T) {
	setupEnv(t)

	id := mustRun(t, "id", "new", "--assign")
	require.Regexp(t, `^\d{6}_01\n$`, id)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "incident", "show", "--json")), &record))
	assert.Equal(t, id[:len(id)-1], record[domain.FieldIdentifier])
	assert.Equal(t, "00", record[domain.FieldRevision])

	next := mustRun(t, "id", "new")
	assert.Regexp(t, `^\d{6}_02\n$`, next)
}

func TestID_NewUsesManagerClock(t *testing.T) {
	setupEnv(t)

	var stdout, stderr bytes.Buffer
	r := &runner{stderr: &stderr, ids: identifier.NewManagerWithClock(func() time.Time {
		return time.Date(2024, 12, 15, 12, 0, 0, 0, time.UTC)
	})}
	root := r.rootCommand()
	root.SetArgs([]string{"id", "new"})
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NoError(t, r.app.Close())

	assert.Equal(t, "202412_01\n", stdout.String())
}

func TestIncident_SetShowReset(t *testing.T) {
	setupEnv(t)

	mustRun(t, "incident", "set", "name=Checkout outage", "severity=S1", "customers_affected=1200", "contact=ops=team")

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "incident", "show", "--json")), &record))
	assert.Equal(t, "Checkout outage", record["name"])
	assert.Equal(t, 1200.0, record["customers_affected"])
	assert.Equal(t, "ops=team", record["contact"])

	mustRun(t, "incident", "set", "--unset", "contact")
	out := mustRun(t, "incident", "show")
	assert.Contains(t, out, "Checkout outage")
	assert.NotContains(t, out, "ops=team")

	mustRun(t, "incident", "reset")
	assert.NotContains(t, mustRun(t, "incident", "show"), "Checkout outage")

	res := run(t, "incident", "set", "novalue")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "expected field=value")
}

func TestIncident_Load(t *testing.T) {
	dir := setupEnv(t)
	mustRun(t, "incident", "set", "name=Checkout outage")

	good := writeFile(t, dir, "incident.json", `{"severity": "S0", "ticket_id": "OPS-1"}`)
	mustRun(t, "incident", "load", good)
	out := mustRun(t, "incident", "show")
	assert.Contains(t, out, "Checkout outage")
	assert.Contains(t, out, "OPS-1")

	bad := writeFile(t, dir, "bad.json", `{"severity": `)
	res := run(t, "incident", "load", bad)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "import")
	assert.Contains(t, mustRun(t, "incident", "show"), "OPS-1")

	mustRun(t, "incident", "load", "--replace", good)
	assert.NotContains(t, mustRun(t, "incident", "show"), "Checkout outage")
}

func TestIncident_LoadStdin(t *testing.T) {
	setupEnv(t)

	var stdout, stderr bytes.Buffer
	r := &runner{stderr: &stderr, ids: identifier.NewManager()}
	root := r.rootCommand()
	root.SetArgs([]string{"incident", "load", "-"})
	root.SetIn(bytes.NewBufferString(`{"name": "From stdin"}`))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NoError(t, r.app.Close())

	assert.Contains(t, stdout.String(), "loaded -")
	assert.Contains(t, mustRun(t, "incident", "show"), "From stdin")
}

func TestIncident_ValidateAndNextUpdate(t *testing.T) {
	setupEnv(t)

	mustRun(t, "incident", "set",
		"identifier=202501_02",
		"name=Checkout outage",
		"severity=S1",
		"impact_summary=Customers cannot complete checkout",
		"start_time=2025-01-15T10:00:00Z",
	)
	assert.Contains(t, mustRun(t, "incident", "validate"), "incident is valid")
	assert.Equal(t, "2025-01-15T10:30:00Z\n", mustRun(t, "incident", "next-update"))

	mustRun(t, "incident", "next-update", "--apply")
	assert.Contains(t, mustRun(t, "incident", "show"), "2025-01-15T10:30:00Z")

	mustRun(t, "incident", "set", "name=Oops", "severity=P1")
	res := run(t, "incident", "validate")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "name")
	assert.Contains(t, res.stderr, "severity")
}

func TestTemplates(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "templates", "list", "--audience", "customers", "--severity", "S0")
	assert.Contains(t, out, "service_outage")
	assert.NotContains(t, out, "status_update")

	out = mustRun(t, "templates", "show", "service_outage")
	assert.Contains(t, out, "id: service_outage")

	var tmpl domain.Template
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "templates", "show", "--json", "status_update")), &tmpl))
	assert.Equal(t, domain.AudienceInternal, tmpl.Audience)

	assert.Contains(t, mustRun(t, "templates", "categories"), "outage")

	mustRun(t, "incident", "set", "name=Checkout outage")
	out = mustRun(t, "templates", "show", "--preview", "service_outage")
	assert.Contains(t, out, "Service Outage: Checkout outage")
	assert.NotContains(t, out, "META")

	res := run(t, "templates", "show", "missing")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "template not found")
}

func TestTemplates_ImportRenderRemove(t *testing.T) {
	dir := setupEnv(t)
	pack := writeFile(t, dir, "pack.yaml", `
communications:
  - id: custom_notice
    title: Custom notice
    category: custom
    audience: internal
    body: "Heads up: [INCIDENT_NAME]"
`)

	assert.Contains(t, mustRun(t, "templates", "import", pack), "imported 1 templates")
	assert.Contains(t, mustRun(t, "templates", "import", "--dedupe", pack), "imported 0 templates")
	assert.Contains(t, mustRun(t, "templates", "list", "--category", "custom"), "custom_notice")

	mustRun(t, "incident", "set", "name=Checkout outage")
	assert.Equal(t, "Heads up: Checkout outage\n", mustRun(t, "render", "custom_notice"))

	assert.Contains(t, mustRun(t, "templates", "remove", "custom_notice"), "removed")
	assert.Equal(t, 1, run(t, "render", "custom_notice").code)

	bad := writeFile(t, dir, "bad.json", `[{"id": "ok", "body": "x"}, {"title": "no id"}]`)
	res := run(t, "templates", "import", bad)
	assert.Equal(t, 1, res.code)
	assert.NotContains(t, mustRun(t, "templates", "list"), "\nok ")
}

func TestRender_Footer(t *testing.T) {
	dir := setupEnv(t)
	mustRun(t, "incident", "set",
		"identifier=202501_02",
		"name=Checkout outage",
		"jurisdiction=EU",
	)

	outFile := filepath.Join(dir, "outage.txt")
	mustRun(t, "render", "service_outage", "--footer", "--out", outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	content, footer, err := render.ParseFooter(string(data))
	require.NoError(t, err)

	assert.Contains(t, content, "Checkout outage")
	assert.Equal(t, "202501_02", footer.Identifier)
	assert.Equal(t, "service_outage", footer.Template)
	assert.Equal(t, []string{"EU"}, footer.Jurisdictions)
	require.Len(t, footer.Notices, 1)
	assert.Equal(t, "EU", footer.Notices[0].Tag)

	out := mustRun(t, "bundle", "footer", outFile)
	assert.Contains(t, out, "service_outage")
	assert.NotContains(t, mustRun(t, "bundle", "footer", "--strip", outFile), render.FooterBegin)

	out = mustRun(t, "render", "service_outage", "--footer", "--jurisdiction", "us,sec")
	_, footer, err = render.ParseFooter(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "SEC"}, footer.Jurisdictions)
}

func TestRender_KindAndHTML(t *testing.T) {
	setupEnv(t)
	mustRun(t, "incident", "set", "name=Checkout outage")

	out := mustRun(t, "render", "service_outage", "--kind", "executive")
	assert.Contains(t, out, "Checkout outage")

	html := mustRun(t, "render", "incident_resolved", "--html")
	assert.Contains(t, html, "<p>")
	assert.Contains(t, html, "Checkout outage")

	res := run(t, "render", "service_outage", "--kind", "press")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "press")
}

func TestRender_BundleSplit(t *testing.T) {
	dir := setupEnv(t)
	mustRun(t, "incident", "set", "identifier=202501_02", "name=Checkout outage")

	bundle := filepath.Join(dir, "bundle.txt")
	mustRun(t, "render", "service_outage", "--all", "--out", bundle)

	out := mustRun(t, "bundle", "split", bundle, "--id", "202501_02")
	assert.Contains(t, out, "202501_02_customer.txt")
	assert.Contains(t, out, "Executive Briefing")

	splitDir := filepath.Join(dir, "split")
	mustRun(t, "bundle", "split", bundle, "--id", "202501_02", "--dir", splitDir)
	for _, kind := range []string{"customer", "executive", "internal"} {
		data, err := os.ReadFile(filepath.Join(splitDir, "202501_02_"+kind+".txt"))
		require.NoError(t, err, kind)
		assert.NotEmpty(t, data, kind)
	}
	customer, err := os.ReadFile(filepath.Join(splitDir, "202501_02_customer.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(customer), "Checkout outage")

	res := run(t, "render", "service_outage", "--all", "--footer")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "--footer")
}

func TestLint(t *testing.T) {
	dir := setupEnv(t)

	var report lint.Report
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "lint", "status_update", "--json")), &report))
	assert.Equal(t, "status_update", report.Template)
	assert.Equal(t, lint.Grade(report.Score.Score), report.Score.Grade)

	out := mustRun(t, "lint", "--all")
	assert.Contains(t, out, "TEMPLATE")
	assert.Contains(t, out, "service_outage/customer")

	draft := writeFile(t, dir, "draft.txt", "hey guys, [FOO] is broken asap, idk why lol")
	res := run(t, "lint", "service_outage", "--file", draft, "--strict")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "lint failed")
	assert.Contains(t, res.stdout, "error")

	assert.Equal(t, 0, run(t, "lint", "service_outage", "--file", draft).code)
	assert.Equal(t, 1, run(t, "lint").code)
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	clean := lint.Report{
		Template: "status_update",
		Result:   domain.LintResult{Passed: []string{lint.RuleTone}},
		Score:    lint.CalculateScore(domain.LintResult{}),
	}
	require.NoError(t, writeReport(&buf, clean))
	assert.Contains(t, buf.String(), "status_update: score 100 (A, pass)")
	assert.Contains(t, buf.String(), "no findings")

	buf.Reset()
	clean.Result.Warnings = []domain.LintFinding{{Rule: lint.RuleTone, Tier: domain.TierWarning, Message: "informal"}}
	require.NoError(t, writeReport(&buf, clean))
	assert.NotContains(t, buf.String(), "no findings")
	assert.Contains(t, buf.String(), "informal")
}

func TestHistory(t *testing.T) {
	setupEnv(t)

	mustRun(t, "incident", "set", "identifier=202501_02", "name=Checkout outage")
	assert.Equal(t, "saved 202501_02.01\n", mustRun(t, "history", "save"))

	mustRun(t, "incident", "set", "name=Checkout fully down")
	assert.Equal(t, "saved 202501_02.02\n", mustRun(t, "history", "save"))

	out := mustRun(t, "history", "list")
	assert.Contains(t, out, "202501_02.02")
	assert.Contains(t, out, "202501_02.01")
	assert.Contains(t, out, "alice")

	var snaps []domain.RevisionSnapshot
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "history", "list", "--limit", "1", "--json")), &snaps))
	require.Len(t, snaps, 1)
	assert.Equal(t, "02", snaps[0].Revision)

	out = mustRun(t, "history", "diff", "1", "0")
	assert.Contains(t, out, "Checkout outage")
	assert.Contains(t, out, "Checkout fully down")

	assert.Equal(t, "restored 202501_02.01\n", mustRun(t, "history", "restore", "1"))
	assert.Contains(t, mustRun(t, "incident", "show"), "Checkout outage")

	assert.Equal(t, 1, run(t, "history", "restore", "9").code)
	assert.Equal(t, 1, run(t, "history", "diff", "0", "x").code)

	mustRun(t, "incident", "reset")
	assert.Equal(t, "202501_02\n", mustRun(t, "history", "list"))
	assert.Equal(t, 1, run(t, "history", "save").code)

	mustRun(t, "history", "clear", "--id", "202501_02")
	assert.Empty(t, mustRun(t, "history", "list"))
}

func TestMetricsFile(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "comms.prom")

	mustRun(t, "--metrics-file", path, "lint", "status_update")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "incidentcomms_lint_runs_total")
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    domain.IncidentRecord
		wantErr bool
	}{
		{
			name: "numeric field",
			args: []string{"customers_affected=1200", "dollar_impact_per_hour=99.5"},
			want: domain.IncidentRecord{
				"customers_affected":     json.Number("1200"),
				"dollar_impact_per_hour": json.Number("99.5"),
			},
		},
		{
			name: "non-numeric value on numeric field stays text",
			args: []string{"customers_affected=about 1k"},
			want: domain.IncidentRecord{"customers_affected": "about 1k"},
		},
		{
			name: "NaN stays text",
			args: []string{"customers_affected=NaN"},
			want: domain.IncidentRecord{"customers_affected": "NaN"},
		},
		{
			name: "value with equals sign",
			args: []string{"link_status_page=https://status.example.com/?id=1"},
			want: domain.IncidentRecord{"link_status_page": "https://status.example.com/?id=1"},
		},
		{
			name: "empty value",
			args: []string{"eta="},
			want: domain.IncidentRecord{"eta": ""},
		},
		{name: "missing equals", args: []string{"name"}, wantErr: true},
		{name: "missing field", args: []string{"=value"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFooterJurisdictions(t *testing.T) {
	tmpl := domain.Template{Jurisdiction: "eu"}

	assert.Equal(t, []string{"SEC"}, footerJurisdictions(tmpl, domain.IncidentRecord{"jurisdiction": "US"}, []string{"sec"}))
	assert.Equal(t, []string{"US"}, footerJurisdictions(tmpl, domain.IncidentRecord{"jurisdiction": "US"}, nil))
	assert.Equal(t, []string{"EU"}, footerJurisdictions(tmpl, domain.IncidentRecord{}, nil))
	assert.Empty(t, footerJurisdictions(domain.Template{}, domain.IncidentRecord{}, nil))
}
