// ABOUTME: Tests for the document template engine
// ABOUTME: Covers placeholder grammars, defaults, frontmatter and non-overwriting output

package docgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/harperreed/partneros/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)

func setupTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := New(nil, filepath.Join(t.TempDir(), "partners"), nil)
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestExtractPlaceholders(t *testing.T) {
	content := "Hi [Partner Name], see ${governing_law} and $term_years; sign ___partner_signatory___. Again [Partner Name]."
	assert.Equal(t,
		[]string{"Partner Name", "governing_law", "term_years", "partner_signatory"},
		ExtractPlaceholders(content))
}

func TestFillLeavesUnknownPlaceholders(t *testing.T) {
	content := "[Partner Name] / [Unknown] / ${known} / $missing / ___known___ / ___other___"
	out := Fill(content, map[string]string{"Partner Name": "Acme", "known": "yes"})
	assert.Equal(t, "Acme / [Unknown] / yes / $missing / yes / ___other___", out)
}

func TestFillDoesNotReprocessValues(t *testing.T) {
	out := Fill("Value: [Amount]", map[string]string{"Amount": "$term", "term": "oops"})
	assert.Equal(t, "Value: $term", out)
}

func TestLoadTemplateStripsFrontmatter(t *testing.T) {
	e := setupTestEngine(t)

	tmpl, err := e.LoadTemplate("legal/01-nda.md")
	require.NoError(t, err)
	assert.Equal(t, "Mutual Non-Disclosure Agreement", tmpl.Frontmatter["title"])
	assert.True(t, strings.HasPrefix(tmpl.Body, "# Mutual Non-Disclosure Agreement"))
	assert.NotContains(t, tmpl.Body, "owner: legal")
	assert.Contains(t, tmpl.Placeholders, "Partner Name")
}

func TestCreateFillsDefaultsAndOverrides(t *testing.T) {
	e := setupTestEngine(t)

	res, err := e.Create(models.DocMSA, "Acme Corp", map[string]string{"Term Years": "3"})
	require.NoError(t, err)
	require.NotNil(t, res)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Acme Corp")
	assert.Contains(t, content, "Effective Date: March 05, 2026")
	assert.Contains(t, content, "initial term is 3 years")
	assert.Contains(t, content, "executed on 2026-03-05")
	assert.Contains(t, content, "${partner_tier}")

	assert.Equal(t, "legal/02-msa.md", res.Template)
	assert.Equal(t, "3", res.Fields["Term Years"])
	assert.Equal(t, "Acme Corp", res.Fields["partner_name"])
	assert.Equal(t, "partners/acme-corp/documents/2026-03-05-143000-msa.md", res.RelativePath)
}

func TestCreateTwiceMakesDistinctFiles(t *testing.T) {
	e := setupTestEngine(t)

	first, err := e.Create(models.DocNDA, "Acme", map[string]string{})
	require.NoError(t, err)
	second, err := e.Create(models.DocNDA, "Acme", map[string]string{})
	require.NoError(t, err)

	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Path, second.Path)

	for _, p := range []string{first.Path, second.Path} {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		content := string(data)
		assert.True(t, strings.Contains(content, "NDA") || strings.Contains(content, "Confidential"))
	}
}

func TestCreateUnknownTypeOrMissingTemplate(t *testing.T) {
	e := setupTestEngine(t)

	res, err := e.Create(models.DocType("sow"), "Acme", nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	sparse := New(fstest.MapFS{
		"legal/01-nda.md": &fstest.MapFile{Data: []byte("NDA for [Partner Name]")},
	}, t.TempDir(), nil)
	res, err = sparse.Create(models.DocDPA, "Acme", nil)
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = sparse.Create(models.DocNDA, "Acme", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
}

func TestWriteChecklist(t *testing.T) {
	e := setupTestEngine(t)

	res, err := e.WriteChecklist("Acme")
	require.NoError(t, err)
	assert.Equal(t, models.DocChecklist, res.Type)
	assert.Equal(t, ChecklistTemplate, res.Template)
	assert.True(t, strings.HasSuffix(res.Path, "-onboarding-checklist.md"))

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Onboarding Checklist: Acme")
}

func TestListDocuments(t *testing.T) {
	e := setupTestEngine(t)

	names, err := e.ListDocuments("Nobody")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = e.Create(models.DocNDA, "Acme", nil)
	require.NoError(t, err)
	_, err = e.WriteChecklist("Acme")
	require.NoError(t, err)

	names, err = e.ListDocuments("acme")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2026-03-05-143000-nda.md",
		"2026-03-05-143000-onboarding-checklist.md",
	}, names)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme":              "acme",
		"Acme Corp":         "acme-corp",
		"  Big   Bank, Inc.": "big-bank-inc",
		"AT&T":              "att",
		"!!!":               "partner",
		"--edge--":          "edge",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
