package web

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/tpcload/internal/core"
)

// UploadPageParams feed the upload page.
type UploadPageParams struct {
	Tables      []*core.TableSchema
	Delimiter   string
	MaxFileSize int64
}

// UploadPage is the single-page upload form. It posts to /api/import and
// renders the NDJSON stream as it arrives. Stop aborts the request and
// asks the server to cancel.
func UploadPage(p UploadPageParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<form id="import-form"><label>Table <select name="table" required>`); err != nil {
			return err
		}
		for _, t := range p.Tables {
			label := t.Info.Label
			if label == "" {
				label = t.Name()
			}
			if _, err := fmt.Fprintf(w, `<option value="%s">%s (%s)</option>`,
				templ.EscapeString(t.Name()), templ.EscapeString(label), templ.EscapeString(t.Name())); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `</select></label>
<label>Delimiter <input name="delimiter" value="%s" size="4"></label>
<label>Encoding <select name="encoding"><option value="utf-8">utf-8</option><option value="gbk">gbk</option><option value="gb18030">gb18030</option></select></label>
<label><input type="checkbox" name="trimTrailing" value="true" checked> Trim trailing delimiter</label>
<label>File <input type="file" name="file" required data-max="%d"></label>
<button type="submit" id="start">Import</button> <button type="button" id="stop" disabled>Stop</button>
</form>
<p class="hint">Limit %s. Compressed .gz, .zst and .xz files are decompressed on the fly.</p>`,
			templ.EscapeString(p.Delimiter), p.MaxFileSize, templ.EscapeString(humanBytes(p.MaxFileSize))); err != nil {
			return err
		}
		_, err := io.WriteString(w, pageTail)
		return err
	})
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>TPC-H import</title>
<style>
body{font-family:system-ui,sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem}
form{display:grid;gap:.6rem}
progress{width:100%}
.errors{font-family:monospace;font-size:.85rem;white-space:pre-wrap}
.hint{color:#666;font-size:.9rem}
</style>
</head>
<body>
<h1>TPC-H import</h1>
`

const pageTail = `
<progress id="bar" value="0" max="100" hidden></progress>
<p id="status"></p>
<div id="errors" class="errors"></div>
<script>
(function () {
  const form = document.getElementById("import-form");
  const stop = document.getElementById("stop");
  const status = document.getElementById("status");
  const bar = document.getElementById("bar");
  const errors = document.getElementById("errors");
  let controller = null, jobId = null;

  function show(ev) {
    const d = ev.data;
    switch (ev.type) {
    case "fileInfo":
      jobId = d.jobId;
      status.textContent = "Importing " + d.fileName + " into " + d.table;
      break;
    case "progress":
      if (d.percent) { bar.max = 100; bar.value = d.percent; }
      status.textContent = d.processed + " processed, " + d.imported + " imported, " + d.failed + " failed";
      errors.textContent = (d.errors || []).map(e => "line " + e.line + ": " + e.reason).join("\n");
      break;
    case "complete":
      bar.value = bar.max;
      status.textContent = "Done: " + d.importedRows + " imported (" + d.duplicateRows + " duplicates), " + d.failedRows + " failed in " + d.durationMs + " ms";
      if (d.failedRows > 0) {
        errors.innerHTML = '<a href="/api/imports/' + jobId + '/errors?format=csv">Failed rows (csv)</a> <a href="/api/imports/' + jobId + '/errors?format=xlsx">(xlsx)</a>';
      }
      break;
    case "aborted":
      status.textContent = "Stopped after " + d.processed + " rows: " + d.reason;
      break;
    case "error":
      status.textContent = "Failed: " + d.error;
      break;
    }
  }

  stop.addEventListener("click", function () {
    if (jobId) { fetch("/api/imports/" + jobId + "/cancel", {method: "POST"}); }
    else if (controller) { controller.abort(); }
  });

  form.addEventListener("submit", async function (e) {
    e.preventDefault();
    const data = new FormData();
    const file = form.file.files[0];
    data.append("table", form.table.value);
    data.append("delimiter", form.delimiter.value);
    data.append("encoding", form.encoding.value);
    data.append("trimTrailing", form.trimTrailing.checked ? "true" : "false");
    data.append("size", String(file.size));
    data.append("file", file);

    controller = new AbortController();
    jobId = null;
    errors.textContent = "";
    bar.hidden = false; bar.value = 0;
    stop.disabled = false;
    try {
      const resp = await fetch("/api/import", {method: "POST", body: data, signal: controller.signal});
      if (!resp.ok) {
        const body = await resp.json();
        status.textContent = body.error + " (" + body.code + ")";
        return;
      }
      const reader = resp.body.getReader();
      const decoder = new TextDecoder();
      let buf = "";
      for (;;) {
        const {value, done} = await reader.read();
        if (done) break;
        buf += decoder.decode(value, {stream: true});
        let nl;
        while ((nl = buf.indexOf("\n")) >= 0) {
          const line = buf.slice(0, nl).trim();
          buf = buf.slice(nl + 1);
          if (line) show(JSON.parse(line));
        }
      }
    } catch (err) {
      if (err.name !== "AbortError") status.textContent = "Failed: " + err.message;
    } finally {
      stop.disabled = true;
    }
  });
})();
</script>
</body>
</html>
`
