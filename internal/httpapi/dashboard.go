package httpapi

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vpnsentinel/vpnsentinel/internal/notifier"
	"github.com/vpnsentinel/vpnsentinel/internal/registry"
)

// dashboardRow is one table row: the raw record plus the fields the
// template can't compute itself.
type dashboardRow struct {
	registry.ClientRecord
	Badge    string
	LastSeen string
}

const dashboardTemplate = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="15">
<title>vpnsentinel dashboard</title>
<style>
body{font-family:system-ui,sans-serif;margin:2rem;background:#0b0d12;color:#e6e6e6}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #333;padding:.4rem .6rem;text-align:left}
.badge{padding:.1rem .5rem;border-radius:.3rem;font-size:.85em}
.ONLINE_SECURE{background:#1f7a3f}
.ONLINE_DNS_LEAK{background:#8a1f1f}
.ONLINE_DNS_UNKNOWN{background:#6b5a1f}
.ONLINE_BYPASS{background:#8a1f1f}
.OFFLINE{background:#3a3a3a}
.NEW{background:#2a3a5a}
#selfview{margin-bottom:1.5rem}
</style>
</head>
<body>
<h1>vpnsentinel</h1>
<div id="selfview">
  <strong>Server self-view</strong>
  — IP: {{.Self.IP}}, country: {{.Self.Country}}, city: {{.Self.City}}, dns location: {{.Self.DNSLocation}}
</div>
<table>
<tr><th>Client</th><th>Version</th><th>VPN IP</th><th>Location</th><th>Provider</th><th>Last seen</th><th>Status</th></tr>
{{range .Rows}}
<tr>
  <td>{{.ClientID}}</td>
  <td>{{.ClientVersion}}</td>
  <td>{{.PublicIP}}</td>
  <td>{{.LastSample.Location.City}}, {{.LastSample.Location.Region}}, {{.LastSample.Location.Country}}</td>
  <td>{{.LastSample.Location.Org}}</td>
  <td>{{.LastSeen}}</td>
  <td><span class="badge {{.State}}">{{.State}}</span></td>
</tr>
{{end}}
</table>
</body>
</html>`

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardTemplate))

// NewDashboardRouter builds the public, read-only dashboard surface.
func NewDashboardRouter(reg *registry.Registry, selfView *registry.SelfView) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})

	r.GET("/dashboard", func(c *gin.Context) {
		now := time.Now()
		records := reg.Snapshot()
		rows := make([]dashboardRow, 0, len(records))
		for _, rec := range records {
			rows = append(rows, dashboardRow{
				ClientRecord: rec,
				Badge:        string(rec.State),
				LastSeen:     notifier.Humanize(rec.LastSeen, now),
			})
		}

		ip, country, city, dnsLoc := "", "", "", ""
		if selfView != nil {
			ip, country, city, dnsLoc = selfView.Snapshot()
		}

		c.Status(http.StatusOK)
		c.Header("Content-Type", "text/html; charset=utf-8")
		_ = dashboardTmpl.Execute(c.Writer, struct {
			Self struct{ IP, Country, City, DNSLocation string }
			Rows []dashboardRow
		}{
			Self: struct{ IP, Country, City, DNSLocation string }{ip, country, city, dnsLoc},
			Rows: rows,
		})
	})

	return r
}
