package core

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"io/fs"
	"net/mail"
	"path"
	"strings"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

type (
	tmplCacheEntry map[string]interface{}    // {ext: *Template}
	tmplCache      map[string]tmplCacheEntry // {name: {tmplCacheEntry}}

	// EmailTemplates holds the parsed email templates. Each template is parsed on top of its `_base` layout.
	EmailTemplates struct {
		cache           tmplCache
		appName         string
		frontendBaseURL string
	}

	EmailMessage struct {
		From    mail.Address
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Subject         string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		SendMessage(ctx context.Context, msg *EmailMessage) error
	}
)

// ParseEmailTemplates parses every `<name>.txt` and `<name>.gohtml` found in `dir`.
// Files starting with "_" are layouts. In strict mode missing keys fail the rendering.
func ParseEmailTemplates(fsys fs.FS, dir string, conf *Config) (*EmailTemplates, error) {
	tmpls := &EmailTemplates{
		cache:           make(tmplCache),
		appName:         conf.AppName,
		frontendBaseURL: conf.FrontendBaseURL,
	}
	strict := conf.Debug || conf.TestMode

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading templates dir")
	}
	for _, entry := range entries {
		fname := entry.Name()
		ext := path.Ext(fname)
		if entry.IsDir() || strings.HasPrefix(fname, "_") || !(ext == ".txt" || ext == ".gohtml") {
			continue
		}
		name := strings.TrimSuffix(fname, ext)
		cacheEntry, ok := tmpls.cache[name]
		if !ok {
			cacheEntry = make(tmplCacheEntry)
			tmpls.cache[name] = cacheEntry
		}

		base, fp := path.Join(dir, "_base"+ext), path.Join(dir, fname)
		if ext == ".txt" {
			tmpl, err := texttmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			cacheEntry[ext] = tmpl
		} else {
			tmpl, err := htmltmpl.ParseFS(fsys, base, fp)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", fp)
			}
			if strict {
				tmpl = tmpl.Option("missingkey=error")
			}
			cacheEntry[ext] = tmpl
		}
	}
	return tmpls, nil
}

func (t *EmailTemplates) get(name, ext string) (interface{}, bool) {
	entry, ok := t.cache[name]
	if !ok {
		return nil, false
	}
	tmpl, ok := entry[ext]
	return tmpl, ok
}

func (t *EmailTemplates) contextData(m *EmailMessage) ContextData {
	return ContextData{
		AppName:         t.appName,
		FrontendBaseURL: t.frontendBaseURL,
		Subject:         m.Subject,
		Data:            m.TemplateData,
	}
}

// Render fills the text and HTML contents of `m`.
func (t *EmailTemplates) Render(m *EmailMessage) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
	}
	if m.TemplateName == "" {
		return nil
	}
	if _, ok := t.cache[m.TemplateName]; !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}

	if tmpl, ok := t.get(m.TemplateName, ".txt"); ok && m.TextContent == "" {
		var buff bytes.Buffer
		if err := tmpl.(*texttmpl.Template).Execute(&buff, t.contextData(m)); err != nil {
			return errors.Wrap(err, "rendering text")
		}
		m.TextContent = buff.String()
	}
	if tmpl, ok := t.get(m.TemplateName, ".gohtml"); ok {
		var buff bytes.Buffer
		if err := tmpl.(*htmltmpl.Template).Execute(&buff, t.contextData(m)); err != nil {
			return errors.Wrap(err, "rendering html")
		}
		m.HTMLContent = buff.String()
	}
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
