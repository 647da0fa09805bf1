package main

import (
	"embed"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
)

//go:embed assets/*
var assets embed.FS

func serveAsset(cfg *Config, name, contentType string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := assets.ReadFile(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Content-Type", contentType)
		securityHeaders(cfg, w)

		_, _ = w.Write(data)
	}
}

func serveIndex(cfg *Config) httprouter.Handle {
	return serveAsset(cfg, "assets/index.html", "text/html; charset=utf-8")
}

func serveCSS(cfg *Config) httprouter.Handle {
	return serveAsset(cfg, "assets/app.css", "text/css; charset=utf-8")
}

func serveJS(cfg *Config) httprouter.Handle {
	return serveAsset(cfg, "assets/app.js", "text/javascript; charset=utf-8")
}
