package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

// harnessTemplate is the page captured browsers load. The client script must
// come first so the host bridge exists before any library or adapter code
// runs, and the library build must precede the overlay scripts and the
// adapter so window.metatests is defined when they execute.
var harnessTemplate = template.Must(template.New("harness").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>metatests browser runner</title>
</head>
<body>
<script src="/client.js"></script>
{{if .HasLibrary}}<script src="/lib.js"></script>
{{end}}{{range .ServeFiles}}<script src="{{.}}"></script>
{{end}}<script src="/adapter.js"></script>
</body>
</html>
`))

func renderHarness(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		HasLibrary bool
		ServeFiles []string
	}{cfg.LibraryPath != "", cfg.ServeFiles}
	if err := harnessTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering harness page: %w", err)
	}
	return buf.Bytes(), nil
}

// clientTemplate is the in-browser side of the event bridge: it owns the
// websocket back to the host, exposes the __host__ callbacks the adapter
// uses, forwards console output, and provides a synchronous require over
// the /base/ file route with empty stubs for neutralized modules.
var clientTemplate = texttemplate.Must(texttemplate.New("client").Parse(`(function () {
  'use strict';

  function queryParam(name) {
    var pairs = location.search.replace(/^\?/, '').split('&');
    for (var i = 0; i < pairs.length; i++) {
      var kv = pairs[i].split('=');
      if (kv[0] === name) return decodeURIComponent(kv[1] || '');
    }
    return '';
  }

  var browser = queryParam('id') || navigator.userAgent;
  var socket = new WebSocket('ws://' + location.host + '/socket');
  var queue = [];
  var ready = false;

  function flush() {
    if (!ready) return;
    while (queue.length) socket.send(queue.shift());
  }

  function post(type, payload) {
    queue.push(JSON.stringify({ type: type, browser: browser, payload: payload }));
    flush();
  }

  socket.onopen = function () {
    ready = true;
    post('register', null);
  };

  window.__host__ = {
    loaded: function () {},
    info: function (p) { post('info', p); },
    result: function (p) { post('result', p); },
    complete: function (p) { post('complete', p); },
    log: function (p) { post('log', p); },
    error: function (p) { post('error', p); }
  };

  var nativeLog = console.log;
  console.log = function () {
    nativeLog.apply(console, arguments);
    post('log', Array.prototype.slice.call(arguments).join(' '));
  };
  var nativeError = console.error;
  console.error = function () {
    nativeError.apply(console, arguments);
    post('error', Array.prototype.slice.call(arguments).join(' '));
  };
  window.onerror = function (message, source, line) {
    post('error', message + ' (' + source + ':' + line + ')');
  };

  var stubbed = {{.Stubbed}};
  var cache = {};
  window.require = function (name) {
    if (name === 'metatests') return window.metatests;
    if (stubbed.indexOf(name) !== -1) return {};
    if (cache[name]) return cache[name].exports;
    var xhr = new XMLHttpRequest();
    xhr.open('GET', '/base/' + name.replace(/^\.\//, ''), false);
    xhr.send(null);
    if (xhr.status !== 200) {
      throw new Error('Cannot resolve module: ' + name);
    }
    var module = { exports: {} };
    cache[name] = module;
    new Function('module', 'exports', 'require', xhr.responseText)(
      module, module.exports, window.require);
    return module.exports;
  };
})();
`))

func renderClient(cfg *Config) ([]byte, error) {
	stubbed := cfg.StubModules
	if stubbed == nil {
		stubbed = []string{}
	}
	list, err := json.Marshal(stubbed)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := clientTemplate.Execute(&buf, struct{ Stubbed string }{string(list)}); err != nil {
		return nil, fmt.Errorf("rendering client script: %w", err)
	}
	return buf.Bytes(), nil
}
