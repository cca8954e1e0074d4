// ABOUTME: Document template engine for partner legal and onboarding documents
// ABOUTME: Loads markdown templates, fills placeholders and writes dated files per partner

package docgen

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/partneros/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed templates
var embedded embed.FS

// ChecklistTemplate is recorded as the source of generated onboarding checklists.
const ChecklistTemplate = "recruitment/09-onboarding.md"

var templateTable = map[models.DocType]string{
	models.DocNDA: "legal/01-nda.md",
	models.DocMSA: "legal/02-msa.md",
	models.DocDPA: "legal/03-dpa.md",
}

// One pass over all three placeholder grammars: [Name], $name / ${name}, ___name___.
var placeholderRe = regexp.MustCompile(`\[([^\]]+)\]|\$\{?(\w+)\}?|___([a-z_]+)___`)

var (
	slugStrip    = regexp.MustCompile(`[^\w\s-]`)
	slugCollapse = regexp.MustCompile(`[-\s]+`)
)

// DefaultTemplates returns the bundled templates, addressed as "legal/01-nda.md".
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// TemplatePath returns the template path for a document type.
func TemplatePath(docType models.DocType) (string, bool) {
	p, ok := templateTable[docType]
	return p, ok
}

type Template struct {
	Path         string
	Frontmatter  map[string]any
	Body         string
	Placeholders []string
}

type Result struct {
	Type         models.DocType    `json:"type"`
	PartnerName  string            `json:"partner_name"`
	Template     string            `json:"template"`
	Path         string            `json:"path"`
	RelativePath string            `json:"relative_path"`
	Fields       map[string]string `json:"fields"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Engine renders templates from an fs.FS into outputDir/<slug>/documents.
type Engine struct {
	templates fs.FS
	outputDir string
	logger    *zap.Logger
	now       func() time.Time
}

func New(templates fs.FS, outputDir string, logger *zap.Logger) *Engine {
	if templates == nil {
		templates = DefaultTemplates()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{templates: templates, outputDir: outputDir, logger: logger, now: time.Now}
}

// OutputDir returns the root directory documents are written under.
func (e *Engine) OutputDir() string {
	return e.outputDir
}

// LoadTemplate reads a template, splitting off YAML frontmatter.
func (e *Engine) LoadTemplate(name string) (*Template, error) {
	data, err := fs.ReadFile(e.templates, name)
	if err != nil {
		return nil, err
	}

	front, body := splitFrontmatter(data)
	t := &Template{Path: name, Body: body, Placeholders: ExtractPlaceholders(body)}
	if front != nil {
		if err := yaml.Unmarshal(front, &t.Frontmatter); err != nil {
			e.logger.Debug("ignoring malformed frontmatter", zap.String("template", name), zap.Error(err))
		}
	}
	return t, nil
}

func splitFrontmatter(data []byte) ([]byte, string) {
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, string(normalized)
	}
	rest := normalized[4:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return nil, string(normalized)
	}
	front := rest[:end]
	body := rest[end+4:]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return front, strings.TrimLeft(string(body), "\n")
}

func placeholderName(groups []string) string {
	for _, g := range groups[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// ExtractPlaceholders lists placeholder names in order of first appearance.
func ExtractPlaceholders(content string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(content, -1) {
		name := placeholderName(m)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Fill replaces every placeholder that has a field. Unknown placeholders are left as written.
func Fill(content string, fields map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(content, func(match string) string {
		name := placeholderName(placeholderRe.FindStringSubmatch(match))
		if v, ok := fields[name]; ok {
			return v
		}
		return match
	})
}

// DefaultFields are applied before caller fields.
func DefaultFields(partnerName string, now time.Time) map[string]string {
	iso := now.Format("2006-01-02")
	return map[string]string{
		"Partner Name":   partnerName,
		"partner_name":   partnerName,
		"Effective Date": now.Format("January 02, 2006"),
		"effective_date": iso,
		"Term Years":     "2",
		"term_years":     "2",
		"Date":           iso,
		"today_date":     iso,
	}
}

// Slugify turns a partner name into a directory name.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugCollapse.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-_")
	if s == "" {
		return "partner"
	}
	return s
}

// Create fills the template for docType and writes it for partnerName.
// It returns nil, nil for an unknown type or a missing template file.
func (e *Engine) Create(docType models.DocType, partnerName string, fields map[string]string) (*Result, error) {
	tmplPath, ok := templateTable[docType]
	if !ok {
		e.logger.Warn("unknown document type", zap.String("type", string(docType)))
		return nil, nil
	}

	tmpl, err := e.LoadTemplate(tmplPath)
	if errors.Is(err, fs.ErrNotExist) {
		e.logger.Warn("template not found", zap.String("template", tmplPath))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", tmplPath, err)
	}

	now := e.now()
	merged := DefaultFields(partnerName, now)
	for k, v := range fields {
		merged[k] = v
	}

	res, err := e.write(partnerName, string(docType), Fill(tmpl.Body, merged), now)
	if err != nil {
		return nil, err
	}
	res.Type = docType
	res.Template = tmplPath
	res.Fields = merged
	e.logger.Info("document created",
		zap.String("type", string(docType)),
		zap.String("partner", partnerName),
		zap.String("path", res.Path))
	return res, nil
}

// WriteChecklist writes the plain onboarding checklist for partnerName.
func (e *Engine) WriteChecklist(partnerName string) (*Result, error) {
	now := e.now()
	content := fmt.Sprintf(`# Onboarding Checklist: %s

Created: %s
Source: %s

## Legal
- [ ] NDA signed
- [ ] MSA signed
- [ ] DPA signed

## Enablement
- [ ] Partner portal access provisioned
- [ ] Sales enablement session scheduled
- [ ] Technical integration kickoff held

## Go-to-market
- [ ] Joint marketing plan agreed
- [ ] First deal registered
- [ ] First QBR on the calendar
`, partnerName, now.Format("2006-01-02"), ChecklistTemplate)

	res, err := e.write(partnerName, "onboarding-checklist", content, now)
	if err != nil {
		return nil, err
	}
	res.Type = models.DocChecklist
	res.Template = ChecklistTemplate
	res.Fields = map[string]string{"Partner Name": partnerName}
	return res, nil
}

// write creates a new file and never overwrites: same-second collisions get a numeric suffix.
func (e *Engine) write(partnerName, suffix, content string, now time.Time) (*Result, error) {
	dir := filepath.Join(e.outputDir, Slugify(partnerName), "documents")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create document directory: %w", err)
	}

	stamp := now.Format("2006-01-02-150405")
	for n := 1; n < 1000; n++ {
		name := fmt.Sprintf("%s-%s.md", stamp, suffix)
		if n > 1 {
			name = fmt.Sprintf("%s-%s-%d.md", stamp, suffix, n)
		}
		full := filepath.Join(dir, name)

		f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create document: %w", err)
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write document: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to write document: %w", err)
		}

		rel, err := filepath.Rel(filepath.Dir(e.outputDir), full)
		if err != nil {
			rel = full
		}
		return &Result{
			PartnerName:  partnerName,
			Path:         full,
			RelativePath: filepath.ToSlash(rel),
			CreatedAt:    now,
		}, nil
	}
	return nil, fmt.Errorf("too many documents named %s-%s", stamp, suffix)
}

// ListDocuments returns the file names written for partnerName, oldest first.
func (e *Engine) ListDocuments(partnerName string) ([]string, error) {
	dir := filepath.Join(e.outputDir, Slugify(partnerName), "documents")
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".md" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}
