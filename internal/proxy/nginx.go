package proxy

import (
	"fmt"
	"io"
	"text/template"
)

// NginxOptions parameterizes the rendered server block.
type NginxOptions struct {
	ListenPort         int
	BackendURL         string
	StaticRoot         string
	ReadTimeoutSeconds int
}

// nginxTemplate renders the routing table as an nginx server block, one
// location per rule in table order. proxy_pass with a trailing slash strips
// the matched prefix, without one it is preserved.
const nginxTemplate = `server {
    listen {{ .Opts.ListenPort }};
    server_name _;
{{- range .Rules }}
{{ if .IsBackend }}
    location {{ .Prefix }} {
        proxy_pass {{ $.Opts.BackendURL }}{{ if not .PreservePrefix }}/{{ end }};
        proxy_http_version 1.1;
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
{{- if .Streaming }}
        proxy_buffering off;
        proxy_cache off;
        proxy_read_timeout {{ $.Opts.ReadTimeoutSeconds }}s;
        proxy_set_header Connection '';
{{- end }}
    }
{{- else }}
    location {{ .Prefix }} {
        root {{ $.Opts.StaticRoot }};
        try_files $uri $uri/ /index.html;
    }
{{- end }}
{{- end }}
}
`

// RenderNginx writes the routing table as an equivalent nginx server block.
// The output is meant for operators who front the container with their own
// nginx instead of the built-in router.
func RenderNginx(w io.Writer, rules []Rule, opts NginxOptions) error {
	if err := Validate(rules); err != nil {
		return err
	}
	tmpl, err := template.New("nginx").Parse(nginxTemplate)
	if err != nil {
		return fmt.Errorf("parse nginx template: %w", err)
	}
	data := struct {
		Rules []Rule
		Opts  NginxOptions
	}{Rules: rules, Opts: opts}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render nginx config: %w", err)
	}
	return nil
}
