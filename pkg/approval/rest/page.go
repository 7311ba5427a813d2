package rest

import (
	"html/template"
	"net/http"
)

// fallbackPage is served when the static test page is missing.
var fallbackPage = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Service}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; }
td { padding: 0.25rem 1rem 0.25rem 0; }
.ok { color: #1a7f37; } .missing { color: #b35900; }
code, pre { background: #f4f4f4; padding: 0.2rem 0.4rem; }
</style>
</head>
<body>
<h1>{{.Service}}</h1>
<p>The test page <code>{{.PagePath}}</code> was not found. The API is available.</p>
<table>
<tr><td>Model</td><td class="{{if .ModelLoaded}}ok{{else}}missing{{end}}">{{if .ModelLoaded}}loaded ({{.ModelPath}}){{else}}not loaded{{end}}</td></tr>
<tr><td>Scaler</td><td class="{{if .ScalerLoaded}}ok{{else}}missing{{end}}">{{if .ScalerLoaded}}loaded ({{.ScalerPath}}){{else}}not loaded{{end}}</td></tr>
<tr><td>Features</td><td>{{.Features}}</td></tr>
</table>
<h2>Endpoints</h2>
<ul>
<li><code>GET /health</code></li>
<li><code>GET /debug/models</code></li>
<li><code>POST /api/predict</code></li>
</ul>
<h2>Required fields</h2>
<p>{{range $i, $f := .Required}}{{if $i}}, {{end}}<code>{{$f}}</code>{{end}}</p>
</body>
</html>
`))

type pageData struct {
	Service      string
	PagePath     string
	ModelLoaded  bool
	ModelPath    string
	ScalerLoaded bool
	ScalerPath   string
	Features     int
	Required     []string
}

// index serves the static test page, or a generated status page when the
// file is missing.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if h.pageExists() {
		http.ServeFile(w, r, h.pagePath())
		return
	}

	reg := h.svc.Pipeline().Registry()
	profile := h.svc.Profile()
	data := pageData{
		Service:      profile.Service,
		PagePath:     h.pagePath(),
		ModelLoaded:  reg.ModelLoaded(),
		ModelPath:    reg.ModelPath(),
		ScalerLoaded: reg.ScalerLoaded(),
		ScalerPath:   reg.ScalerPath(),
		Features:     len(profile.Schema.Names()),
		Required:     profile.Fields.Required(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fallbackPage.Execute(w, data); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}
