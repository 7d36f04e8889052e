package handlers

import (
	"html/template"

	"sensor-gateway/internal/models"
)

// statusPageData данные для шаблона статусной страницы
type statusPageData struct {
	Report        models.StatusReport
	HistoryActive bool
	Streams       int
	Length        int
	Width         int
}

// Статический HTML шаблон статусной страницы: таблица статистики по
// доменам и графики Chart.js, питающиеся блобом /history
var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="refresh" content="3600">
    <title>Sensor Gateway</title>
    <style>
      table.sensor {
        border-top: solid 1px black;
        border-left: solid 1px black;
        margin-left: auto;
        margin-right: auto;
        border-collapse: collapse;
      }
      table.sensor th, table.sensor td {
        border-right: solid 1px black;
        border-bottom: solid 1px black;
        padding: 4px 12px;
      }
      table.sensor th.header {
        background-color: #0000CC;
        color: white;
        font-size: 24px;
        font-weight: bold;
        text-align: center;
      }
      table.sensor tr.subheader {
        background-color: #8080FF;
        font-weight: bold;
      }
      table.sensor tr.domain {
        background-color: #E8E8FF;
      }
      table.sensor tr.system {
        background-color: #C8C8FF;
      }
      table.sensor td.num {
        text-align: right;
      }
      div.chartContainer {
        width: 1200px;
        height: 400px;
        margin: 40px auto 0 auto;
        text-align: center;
      }
      canvas.chart {
        width: 1200px;
        height: 400px;
      }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  </head>
  <body>
    <table class="sensor">
      <tr><th class="header" colspan="7">Sensor Gateway</th></tr>
      <tr class="subheader">
        <td>Domain</td><td>Current</td><td>Min</td><td>Average</td><td>Max</td><td>Peak</td><td>Unit</td>
      </tr>
{{- range .Report.Domains}}
      <tr class="domain">
        <th>{{.Domain}}</th>
{{- if .Valid}}
        <td class="num">{{printf "%.2f" .Current}}</td>
        <td class="num">{{printf "%.2f" .Min}}</td>
        <td class="num">{{printf "%.2f" .Average}}</td>
        <td class="num">{{printf "%.2f" .Max}}</td>
        <td class="num">{{if .HasPeak}}{{printf "%.2f" .WindowPeak}}{{else}}&mdash;{{end}}</td>
{{- else}}
        <td class="num" colspan="5">stabilizing&hellip;</td>
{{- end}}
        <td>{{.Unit}}</td>
      </tr>
{{- end}}
      <tr class="system"><th>Uptime</th><td colspan="6">{{.Report.Uptime}}</td></tr>
    </table>

{{- if .HistoryActive}}
    <div class="chartContainer"><canvas id="chart1" class="chart"></canvas></div>
    <div class="chartContainer"><canvas id="chart2" class="chart"></canvas></div>
    <div class="chartContainer"><canvas id="chart3" class="chart"></canvas></div>
    <script>
      var streamCount = {{.Streams}};
      var historyLength = {{.Length}};
      var elementWidth = {{.Width}};

      function parseStream(blob, index) {
        var region = blob.substr(index * historyLength * elementWidth, historyLength * elementWidth);
        var values = [];
        for (var i = 0; i < historyLength; i++) {
          var field = region.substr(i * elementWidth, elementWidth).trim();
          if (field.endsWith(',')) field = field.slice(0, -1);
          values.push(field === '' || field === 'null' ? null : Number(field));
        }
        return values;
      }

      function lineChart(id, labels, series) {
        new Chart(document.getElementById(id), {
          type: 'line',
          data: {
            labels: labels,
            datasets: series.map(function (s) {
              return {
                label: s.label,
                data: s.data,
                borderColor: s.color,
                backgroundColor: s.color,
                pointRadius: 1,
                spanGaps: false
              };
            })
          },
          options: {
            responsive: true,
            maintainAspectRatio: false,
            interaction: { mode: 'index', intersect: false }
          }
        });
      }

      fetch('/history')
        .then(function (r) { return r.text(); })
        .then(function (blob) {
          var labels = parseStream(blob, 0);
          lineChart('chart1', labels, [
            { label: 'Sound (dB)', data: parseStream(blob, 1), color: 'blue' },
            { label: 'Light (lux)', data: parseStream(blob, 2), color: 'cyan' }
          ]);
          lineChart('chart2', labels, [
            { label: 'Temperature', data: parseStream(blob, 3), color: 'red' },
            { label: 'Humidity (%)', data: parseStream(blob, 4), color: 'green' }
          ]);
          lineChart('chart3', labels, [
            { label: 'Pressure (mbar)', data: parseStream(blob, 5), color: 'blue' },
            { label: 'Battery (V)', data: parseStream(blob, 6), color: 'orange' }
          ]);
        });
    </script>
{{- end}}
  </body>
</html>
`))
