package report

import "html/template"

const title = "GeneReveal Report"

var htmlReport = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="en"><head><meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>GeneReveal Report</title>
<style>
  :root{--bg:#0b0f14;--card:#10151c;--muted:#94a3b8;--text:#e5e7eb;--accent:#34d399;--line:rgba(255,255,255,.08)}
  @media print {@page { size: A4; margin: 14mm }}
  *{box-sizing:border-box}
  body{margin:0;background:var(--bg);color:var(--text);font-family:system-ui,Helvetica,Arial,sans-serif}
  .wrap{max-width:980px;margin:24px auto;padding:0 16px}
  .brand{border:1px solid rgba(52,211,153,.35);border-radius:16px;padding:16px 18px;margin-bottom:18px}
  .brand h1{font-size:20px;margin:0}
  .muted{color:var(--muted)}
  .grid{display:grid;grid-template-columns:1fr;gap:16px}
  .card{background:var(--card);border:1px solid var(--line);border-radius:16px;padding:16px}
  .wide{grid-column:1/-1}
  .card h2{font-size:16px;margin:0 0 10px 0;color:var(--muted)}
  .card h3{font-size:14px;margin:6px 0 10px 0;color:var(--muted)}
  .row{display:flex;justify-content:space-between;gap:12px;padding:8px 0;border-bottom:1px dashed var(--line)}
  .row:last-child{border-bottom:none}
  .pill{font-weight:700;color:var(--accent)}
  pre{white-space:pre-wrap;word-wrap:break-word;margin:0}
</style>
</head>
<body>
  <div class="wrap">
    <div class="brand"><h1>GeneReveal</h1><div class="muted">Genetic Disorder Prediction Report</div></div>
    <div class="grid">
      <div class="card">
        <h2>Patient Details</h2>
{{- range .Patient}}
        <div class="row"><span>{{.Label}}</span><span>{{.Value}}</span></div>
{{- end}}
      </div>
      <div class="card">
        <h2>Predicted Outcomes</h2>
{{- range .Outcomes}}
        <div class="row"><span>{{.Label}}</span><span class="pill">{{.Value}}</span></div>
{{- end}}
      </div>
      <div class="card wide">
        <h2>Confidence Distributions</h2>
{{- range .Confidences}}
        <div class="card"><h3>{{.Target}}</h3>
{{- range .Rows}}
          <div class="row"><span>{{.Label}}</span><span>{{.Value}}</span></div>
{{- end}}
        </div>
{{- end}}
      </div>
      <div class="card wide">
        <h2>Supervision Note</h2>
        <pre>{{.Note}}</pre>
      </div>
    </div>
  </div>
</body></html>
`))
