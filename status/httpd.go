// Package status serves the HTTP status page and Prometheus metrics of the
// watch daemon.
package status

import (
	"fmt"
	htmltemplate "html/template"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/binsize/binsize/config"
	"github.com/binsize/binsize/watcher"
)

func StartHTTPServer(c config.Config, w *watcher.Watcher) {
	if c.HTTP.Address == "" {
		logrus.Info("HTTP stats server disabled")
		return
	}
	logrus.WithField("address", c.HTTP.Address).Info("HTTP stats server enabled")
	http.Handle("/metrics", promhttp.Handler())
	http.Handle("/", &Page{
		c: c,
		w: w,
	})
	go func() {
		err := http.ListenAndServe(c.HTTP.Address, nil)
		logrus.Fatalf("HTTP server error: %v", err)
	}()
}

type Page struct {
	c config.Config
	w *watcher.Watcher
}

const statusTemplateString = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<title>binsize Watcher Status</title>
	<style>
		body          { font-family: sans-serif; }
		table, td, th { border: 1px solid #ccc; border-collapse: collapse; }
		td, th        { padding: 5px; text-align: left; }
		a             { text-decoration: none; color: #3c6ac5; }
	</style>
</head>
<body>
	<h1>binsize Watcher Status</h1>
	<p>
		<a href="/metrics">Prometheus metrics</a>
	</p>

	<h2>Uploads</h2>
	<table>
		<tr><th>Uploaded</th><td>{{ .Stats.Uploaded }}</td></tr>
		<tr><th>Failed</th><td>{{ .Stats.Failed }}</td></tr>
	</table>

	<h2>Config</h2>
	<pre>{{ .Config.String }}</pre>

</body>
</html>`

var statusTemplate *htmltemplate.Template

func init() {
	var err error
	statusTemplate, err = htmltemplate.New("status").Parse(statusTemplateString)
	if err != nil {
		log.Fatalf("BUG: Error in status HTML template: %v", err)
	}
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := struct {
		Config config.Config
		Stats  watcher.Stats
	}{
		Config: p.c,
		Stats:  p.w.Stats(),
	}

	err := statusTemplate.Execute(w, data)
	if err != nil {
		w.WriteHeader(500)
		_, _ = w.Write([]byte(fmt.Sprintf("Template execution error: %v", err)))
	}
}
