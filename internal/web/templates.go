package web

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/user/intruscan/internal/daemon"
	"github.com/user/intruscan/internal/model"
)

var dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Product}} Dashboard</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        :root {
            --bg: #0f172a;
            --card: #1e293b;
            --border: #334155;
            --text: #e2e8f0;
            --dim: #94a3b8;
            --green: #22c55e;
            --yellow: #eab308;
            --red: #ef4444;
            --blue: #3b82f6;
        }
        body { font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif; background: var(--bg); color: var(--text); padding: 24px; }
        header { display: flex; justify-content: space-between; align-items: baseline; margin-bottom: 24px; }
        h1 { font-size: 1.6rem; }
        h2 { font-size: 1.1rem; margin-bottom: 12px; color: var(--dim); }
        .grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 16px; margin-bottom: 24px; }
        .card { background: var(--card); border: 1px solid var(--border); border-radius: 8px; padding: 16px; }
        .card .value { font-size: 1.8rem; font-weight: bold; margin-top: 6px; }
        .risk-High { color: var(--red); }
        .risk-Medium { color: var(--yellow); }
        .risk-Low { color: var(--green); }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid var(--border); font-size: 0.9rem; }
        th { color: var(--dim); font-weight: normal; }
        a { color: var(--blue); text-decoration: none; }
        .section { margin-bottom: 24px; }
        .ok { color: var(--green); }
        .bad { color: var(--red); }
        form { display: flex; gap: 8px; align-items: center; }
        button { background: var(--blue); color: white; border: 0; border-radius: 4px; padding: 6px 14px; cursor: pointer; }
        #upload-status, #url-result { color: var(--dim); margin-left: 8px; }
        input[type=url] { flex: 1; padding: 6px; background: var(--bg); color: var(--text); border: 1px solid var(--border); border-radius: 4px; }
    </style>
</head>
<body>
    <header>
        <h1>{{.Product}} Security Dashboard</h1>
        <span>User: {{.User}} &middot; Daemon: {{if .DaemonRunning}}<span class="ok">running</span>{{else}}<span class="bad">stopped</span>{{end}}</span>
    </header>

    <div class="grid">
        <div class="card"><div>Total Scans</div><div class="value">{{.Stats.TotalScans}}</div></div>
        <div class="card"><div>Anomalies Detected</div><div class="value risk-High">{{.Stats.AnomaliesDetected}}</div></div>
        <div class="card"><div>Normal Traffic</div><div class="value risk-Low">{{.Stats.NormalTraffic}}</div></div>
        <div class="card"><div>Risk Level</div><div class="value risk-{{.Stats.RiskLevel}}">{{.Stats.RiskLevel}}</div></div>
    </div>

    <div class="section card">
        <h2>Analyze Traffic Capture</h2>
        <form id="upload-form">
            <input type="file" name="file" accept=".csv" required>
            <button type="submit">Analyze</button>
            <span id="upload-status"></span>
        </form>
    </div>

    <div class="section card">
        <h2>Recent Scans</h2>
        {{if .Scans}}
        <table>
            <tr><th>Uploaded</th><th>File</th><th>Records</th><th>Anomalies</th><th>Rate</th><th>Risk</th><th>Report</th></tr>
            {{range .Scans}}
            <tr>
                <td>{{.UploadDate.Format "2006-01-02 15:04"}}</td>
                <td>{{.Filename}}</td>
                <td>{{.Results.TotalRecords}}</td>
                <td>{{.Results.AnomaliesDetected}}</td>
                <td>{{printf "%.2f" .Results.AnomalyRate}}%</td>
                <td class="risk-{{.RiskLevel}}">{{.RiskLevel}}</td>
                <td><a href="/api/scans/{{.ID}}/report">PDF</a> &middot; <a href="/api/scans/{{.ID}}/report?format=markdown">MD</a></td>
            </tr>
            {{end}}
        </table>
        {{else}}
        <p>No scans yet. Upload a capture to get started.</p>
        {{end}}
    </div>

    <div class="grid">
        <div class="card" style="grid-column: span 2">
            <h2>URL Check</h2>
            <form id="url-form">
                <input type="url" name="url" placeholder="https://example.com" required>
                <button type="submit">Check</button>
            </form>
            <p id="url-result"></p>
            <p style="margin-top: 8px">Scanned: {{.URLCounters.RequestsScanned}} &middot; Threats: {{.URLCounters.ThreatsDetected}}</p>
        </div>
        <div class="card" style="grid-column: span 2">
            <h2>Services</h2>
            {{if .Health}}
            <table>
                {{range .Health}}
                <tr><td>{{.Name}}</td><td>{{if .Healthy}}<span class="ok">healthy</span>{{else}}<span class="bad">{{.Detail}}</span>{{end}}</td><td>{{.Latency}}</td></tr>
                {{end}}
            </table>
            {{else}}
            <p>No health data yet.</p>
            {{end}}
        </div>
    </div>

    <script>
    document.getElementById('upload-form').addEventListener('submit', async (e) => {
        e.preventDefault();
        const status = document.getElementById('upload-status');
        status.textContent = 'Analyzing...';
        const res = await fetch('/api/analyze', { method: 'POST', body: new FormData(e.target) });
        const body = await res.json();
        if (!res.ok) { status.textContent = body.error; return; }
        status.textContent = 'Done: ' + body.riskLevel + ' risk';
        setTimeout(() => location.reload(), 800);
    });
    document.getElementById('url-form').addEventListener('submit', async (e) => {
        e.preventDefault();
        const out = document.getElementById('url-result');
        const res = await fetch('/api/urlcheck', {
            method: 'POST',
            headers: { 'Content-Type': 'application/json' },
            body: JSON.stringify({ url: e.target.url.value }),
        });
        const body = await res.json();
        if (!res.ok) { out.textContent = body.error; return; }
        out.textContent = body.detected
            ? 'Threat "' + body.matched + '" (' + body.threatLevel.toUpperCase() + ')'
            : 'No threat detected';
    });
    </script>
</body>
</html>`

var templates = template.Must(template.New("dashboard.html").Parse(dashboardHTML))

// GetTemplates returns the parsed templates.
func GetTemplates() *template.Template {
	return templates
}

type dashboardData struct {
	Product       string
	User          string
	DaemonRunning bool
	Stats         model.UserStats
	Scans         []model.ScanRecord
	URLCounters   model.URLCounters
	Health        []model.ServiceHealth
}

// Dashboard serves the main dashboard page.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	data := h.getDashboardData(user)

	var sb strings.Builder
	if err := GetTemplates().ExecuteTemplate(&sb, "dashboard.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(sb.String()))
}

func (h *Handlers) getDashboardData(user string) dashboardData {
	data := dashboardData{
		Product: h.config.ProductName,
		User:    user,
		Stats:   model.UserStats{RiskLevel: model.RiskLow},
	}

	if stats, err := h.scans.UserStats(user); err == nil {
		data.Stats = *stats
	}
	if scans, err := h.scans.ListByUser(user, 10); err == nil {
		data.Scans = scans
	}
	if h.tracker != nil {
		if c, err := h.tracker.Counters(); err == nil {
			data.URLCounters = c
		}
	}
	if h.monitor != nil {
		data.Health = h.monitor.Snapshot()
	}

	data.DaemonRunning, _ = daemon.CheckRunning(h.config.DataDir)

	return data
}
