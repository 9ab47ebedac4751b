package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>FraudLens</title>
    <meta name="description" content="Real-time transaction fraud scoring">
    <link rel="icon" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='.9em' font-size='90'>◎</text></svg>">
    <link rel="preconnect" href="https://fonts.googleapis.com">
    <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
    <link href="https://fonts.googleapis.com/css2?family=Inter:wght@400;500;600&family=JetBrains+Mono:wght@400;500&display=swap" rel="stylesheet">
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }

        :root {
            --bg: #09090b;
            --bg-subtle: #18181b;
            --border: #27272a;
            --text: #fafafa;
            --text-secondary: #a1a1aa;
            --text-tertiary: #52525b;
            --accent: #22c55e;
            --red: #ef4444;
            --amber: #f59e0b;
            --blue: #3b82f6;
        }

        body {
            font-family: 'Inter', -apple-system, sans-serif;
            background: var(--bg);
            color: var(--text);
            min-height: 100vh;
            font-size: 14px;
            line-height: 1.5;
            -webkit-font-smoothing: antialiased;
        }

        .mono { font-family: 'JetBrains Mono', monospace; }

        .container { max-width: 1100px; margin: 0 auto; padding: 32px 24px; }

        header {
            display: flex;
            align-items: baseline;
            justify-content: space-between;
            margin-bottom: 32px;
        }
        header h1 { font-size: 18px; font-weight: 600; }
        header .status { color: var(--text-tertiary); font-size: 12px; }
        header .status.live { color: var(--accent); }

        .stats {
            display: grid;
            grid-template-columns: repeat(4, 1fr);
            gap: 12px;
            margin-bottom: 32px;
        }
        .stat {
            background: var(--bg-subtle);
            border: 1px solid var(--border);
            border-radius: 8px;
            padding: 16px;
        }
        .stat .label { color: var(--text-secondary); font-size: 12px; }
        .stat .value { font-size: 22px; font-weight: 600; margin-top: 4px; }

        h2 {
            font-size: 13px;
            font-weight: 500;
            color: var(--text-secondary);
            text-transform: uppercase;
            letter-spacing: 0.05em;
            margin-bottom: 12px;
        }

        table { width: 100%; border-collapse: collapse; }
        th, td {
            text-align: left;
            padding: 8px 12px;
            border-bottom: 1px solid var(--border);
            font-size: 13px;
        }
        th { color: var(--text-tertiary); font-weight: 500; }
        td.score { font-family: 'JetBrains Mono', monospace; }

        .level { font-size: 12px; padding: 2px 8px; border-radius: 9999px; }
        .level.low { color: var(--accent); background: rgba(34, 197, 94, 0.1); }
        .level.medium { color: var(--amber); background: rgba(245, 158, 11, 0.1); }
        .level.high { color: var(--red); background: rgba(239, 68, 68, 0.1); }

        .empty { color: var(--text-tertiary); padding: 24px 12px; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>FraudLens</h1>
            <span id="conn" class="status">connecting…</span>
        </header>

        <div class="stats">
            <div class="stat"><div class="label">Assessments (session)</div><div id="count" class="value mono">0</div></div>
            <div class="stat"><div class="label">High risk</div><div id="high" class="value mono">0</div></div>
            <div class="stat"><div class="label">Model accuracy</div><div id="accuracy" class="value mono">—</div></div>
            <div class="stat"><div class="label">Model F1</div><div id="f1" class="value mono">—</div></div>
        </div>

        <h2>Live assessments</h2>
        <table>
            <thead>
                <tr><th>Transaction</th><th>User</th><th>Score</th><th>Level</th><th>Top signal</th></tr>
            </thead>
            <tbody id="rows">
                <tr><td colspan="5" class="empty">Waiting for assessments…</td></tr>
            </tbody>
        </table>
    </div>

    <script>
        const MAX_ROWS = 50;
        let count = 0, high = 0, empty = true;

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(proto + '//' + location.host + '/v1/stream');
            const conn = document.getElementById('conn');

            ws.onopen = () => { conn.textContent = 'live'; conn.classList.add('live'); };
            ws.onclose = () => {
                conn.textContent = 'reconnecting…';
                conn.classList.remove('live');
                setTimeout(connect, 3000);
            };
            ws.onmessage = (msg) => {
                const event = JSON.parse(msg.data);
                if (event.type === 'assessment.completed') addRow(event.data);
                if (event.type === 'model.retrained') loadMetrics();
            };
        }

        function addRow(a) {
            count++;
            if (a.riskLevel === 'high') high++;
            document.getElementById('count').textContent = count;
            document.getElementById('high').textContent = high;

            const rows = document.getElementById('rows');
            if (empty) { rows.innerHTML = ''; empty = false; }

            const tr = document.createElement('tr');
            const signal = a.reasoning || '';
            tr.innerHTML =
                '<td class="mono">' + esc(a.transactionId) + '</td>' +
                '<td class="mono">' + esc(a.userId || '—') + '</td>' +
                '<td class="score">' + Number(a.riskScore).toFixed(1) + '</td>' +
                '<td><span class="level ' + esc(a.riskLevel) + '">' + esc(a.riskLevel) + '</span></td>' +
                '<td>' + esc(signal) + '</td>';
            rows.prepend(tr);
            while (rows.children.length > MAX_ROWS) rows.removeChild(rows.lastChild);
        }

        function loadMetrics() {
            fetch('/v1/model/metrics')
                .then(r => r.json())
                .then(m => {
                    document.getElementById('accuracy').textContent = (m.accuracy * 100).toFixed(1) + '%';
                    document.getElementById('f1').textContent = m.f1_score.toFixed(3);
                })
                .catch(() => {});
        }

        function esc(s) {
            const d = document.createElement('div');
            d.textContent = s == null ? '' : String(s);
            return d.innerHTML;
        }

        connect();
        loadMetrics();
    </script>
</body>
</html>`

// dashboardHandler serves the live scoring dashboard
func dashboardHandler(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(http.StatusOK, dashboardHTML)
}
