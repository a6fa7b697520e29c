package server

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/server/middleware"
)

const notFoundPage = `<!DOCTYPE html>
<h3 style="font: 20px sans-serif; margin: 12px">The requested resource could not be found.</h3>
`

// NotFound writes the shared 404 page.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(notFoundPage))
}

// hostMux dispatches on the request's Host header.
type hostMux map[string]http.Handler

func (m hostMux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[middleware.HostName(r.Host)]; ok {
		h.ServeHTTP(w, r)
		return
	}
	NotFound(w, r)
}

// newHostMux builds the dispatcher for one listener kind. TLS listeners only
// answer for vhosts carrying certificates.
func newHostMux(vhosts []config.VHost, tls bool) hostMux {
	m := make(hostMux, len(vhosts))
	for _, vh := range vhosts {
		if h := vhostHandler(vh, tls); h != nil {
			m[strings.ToLower(vh.Host)] = h
		}
	}
	return m
}

func vhostHandler(vh config.VHost, tls bool) http.Handler {
	if tls && vh.TLS == nil {
		return nil
	}
	if !tls && vh.TLS != nil && vh.TLS.HTTPDest != "" {
		return httpsRedirect(vh.TLS.HTTPDest)
	}
	return newVHost(vh)
}

// httpsRedirect sends every plain HTTP request to dest with the path appended.
func httpsRedirect(dest string) http.Handler {
	dest = strings.TrimSuffix(dest, "/")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", dest+r.URL.RequestURI())
		w.WriteHeader(http.StatusPermanentRedirect)
	})
}

type redirect struct {
	target string
	dest   string
	status int
}

type mount struct {
	prefix string
	dir    string
}

type vhost struct {
	redirects []redirect
	mounts    []mount
}

func newVHost(cfg config.VHost) *vhost {
	v := &vhost{}
	for _, r := range cfg.Redir {
		status := http.StatusTemporaryRedirect
		if r.Permanent {
			status = http.StatusPermanentRedirect
		}
		v.redirects = append(v.redirects, redirect{
			target: strings.TrimSuffix(r.Target, "/"),
			dest:   r.Dest,
			status: status,
		})
	}
	for _, f := range cfg.Files {
		v.mounts = append(v.mounts, mount{prefix: strings.TrimSuffix(f.Mount, "/"), dir: f.FileDir})
	}
	// Longest prefix wins.
	sort.SliceStable(v.redirects, func(i, j int) bool { return len(v.redirects[i].target) > len(v.redirects[j].target) })
	sort.SliceStable(v.mounts, func(i, j int) bool { return len(v.mounts[i].prefix) > len(v.mounts[j].prefix) })
	return v
}

func (v *vhost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := cleanPath(r.URL.Path)
	for _, rd := range v.redirects {
		if rest, ok := matchPrefix(rd.target, p); ok {
			loc := joinDest(rd.dest, rest)
			if r.URL.RawQuery != "" {
				loc += "?" + r.URL.RawQuery
			}
			w.Header().Set("Location", loc)
			w.WriteHeader(rd.status)
			return
		}
	}
	for _, m := range v.mounts {
		if rest, ok := matchPrefix(m.prefix, p); ok {
			serveFile(w, r, m.dir, rest)
			return
		}
	}
	NotFound(w, r)
}

// cleanPath collapses duplicate slashes and dot segments while keeping a
// trailing slash.
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

// matchPrefix matches p against prefix exactly or as a parent segment and
// returns the remainder, which is empty or starts with "/".
func matchPrefix(prefix, p string) (string, bool) {
	if p == prefix || (prefix == "" && p == "/") {
		return "", true
	}
	if strings.HasPrefix(p, prefix+"/") {
		return p[len(prefix):], true
	}
	return "", false
}

func joinDest(dest, rest string) string {
	if rest == "" || (rest == "/" && strings.HasSuffix(dest, "/")) {
		return dest
	}
	return strings.TrimSuffix(dest, "/") + rest
}

// serveFile serves rel from dir. Directories resolve to their index.html and
// are never listed. Dot segments are hidden.
func serveFile(w http.ResponseWriter, r *http.Request, dir, rel string) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	rel = strings.TrimPrefix(rel, "/")
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			NotFound(w, r)
			return
		}
	}
	full := filepath.Join(dir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		NotFound(w, r)
		return
	}
	if info.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			loc := r.URL.Path + "/"
			if r.URL.RawQuery != "" {
				loc += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, loc, http.StatusMovedPermanently)
			return
		}
		full = filepath.Join(full, "index.html")
		info, err = os.Stat(full)
		if err != nil || info.IsDir() {
			NotFound(w, r)
			return
		}
	}
	f, err := os.Open(full)
	if err != nil {
		NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
