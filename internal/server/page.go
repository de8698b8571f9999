package server

// sharePageTemplate is the public read-only view of a share. It polls the
// data endpoint; there is no push channel to readers.
const sharePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Shared session {{.ShareID}}</title>
  <style>
    body { font-family: system-ui, sans-serif; margin: 0 auto; max-width: 48rem; padding: 1rem; }
    header { border-bottom: 1px solid #ddd; margin-bottom: 1rem; padding-bottom: 0.5rem; }
    pre { background: #f6f6f6; border-radius: 4px; overflow-x: auto; padding: 0.75rem; white-space: pre-wrap; }
    .muted { color: #777; }
  </style>
</head>
<body>
  <header>
    <h1>Shared session</h1>
    <p class="muted">Share <code>{{.ShareID}}</code></p>
  </header>
  <main id="content"><p class="muted">Loading…</p></main>
  <script>
    const shareID = {{.ShareID}};
    async function refresh() {
      try {
        const response = await fetch("/api/share/" + encodeURIComponent(shareID) + "/data");
        if (!response.ok) {
          document.getElementById("content").textContent = "Share unavailable (" + response.status + ")";
          return;
        }
        const body = await response.json();
        const pre = document.createElement("pre");
        pre.textContent = JSON.stringify(body.data, null, 2);
        const content = document.getElementById("content");
        content.replaceChildren(pre);
      } catch (err) {
        document.getElementById("content").textContent = "Failed to load share data";
      }
    }
    refresh();
    setInterval(refresh, 5000);
  </script>
</body>
</html>
`
