// Package metrics implements §6's management surface as real
// Prometheus metrics plus a small JSON introspection endpoint,
// replacing the JMX attribute set spec.md marks out of scope for
// transport only — the same data, idiomatic-Go transport.
//
// Grounded on backend/cache/cache.go's rc.Add(rc.Call{Path, Fn, Title,
// Help}) registrations for "cache/stats", "cache/expire" and
// "cache/fetch": that file wires a handful of named introspection
// calls onto rclone's shared rc HTTP surface. Here the same shape is
// expressed with github.com/prometheus/client_golang gauges plus a
// github.com/go-chi/chi/v5 router serving /metrics (via promhttp) and
// /debug/manager, since TrueVFS has no rc package of its own to piggy-
// back on.
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/truevfs/truevfs/archivedriver"
)

// ControllerSource is the subset of *manager.Manager the metrics
// registry needs. Declared here, implemented there, so this package
// never imports manager — kept in the same leaf-dependency shape as
// pacemaker.SyncFunc.
type ControllerSource interface {
	Controllers() []archivedriver.Controller
}

// TouchSource reports how many mount points the pacemaker currently
// considers touched-but-unsynced. Implemented by *pacemaker.Pacemaker;
// declared here for the same reason as ControllerSource.
type TouchSource interface {
	Len() int
}

// Registry publishes the §6 attribute set: FileSystemsTotal,
// FileSystemsMounted, FileSystemsTouched, TopLevelArchives, and the
// pacemaker's MaximumFileSystemsMounted, plus per-mount-point
// BytesRead/BytesWritten counters fed by iosocket's CountingReader/
// CountingWriter callbacks.
type Registry struct {
	reg *prometheus.Registry

	filesystemsTotal      prometheus.Gauge
	filesystemsMounted    prometheus.Gauge
	filesystemsTouched    prometheus.Gauge
	topLevelArchives      prometheus.Gauge
	maxFilesystemsMounted prometheus.Gauge

	bytesRead    *prometheus.CounterVec
	bytesWritten *prometheus.CounterVec

	source ControllerSource
	touch  TouchSource
}

// New builds a Registry reporting on source's live controllers and
// touch's touched-but-unsynced count. source is typically a
// *manager.Manager, touch a *pacemaker.Pacemaker.
func New(source ControllerSource, touch TouchSource) *Registry {
	r := &Registry{
		reg:    prometheus.NewRegistry(),
		source: source,
		touch:  touch,
		filesystemsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "truevfs",
			Name:      "filesystems_total",
			Help:      "Number of federated file systems interned by the manager, mounted or not.",
		}),
		filesystemsMounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "truevfs",
			Name:      "filesystems_mounted",
			Help:      "Number of federated file systems currently mounted (a subset of filesystems_total; host mount points do not count).",
		}),
		filesystemsTouched: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "truevfs",
			Name:      "filesystems_touched",
			Help:      "Number of federated file systems with pending (unsynced) changes.",
		}),
		topLevelArchives: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "truevfs",
			Name:      "top_level_archives",
			Help:      "Number of mounted archives whose parent is a host file system.",
		}),
		maxFilesystemsMounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "truevfs",
			Name:      "pacemaker_max_filesystems_mounted",
			Help:      "Pacemaker's configured bound on touched-but-unsynced mount points before proactive partial sync kicks in.",
		}),
		bytesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "truevfs",
			Name:      "bytes_read_total",
			Help:      "Bytes read from a mount point's entries, by mount point.",
		}, []string{"mount_point"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "truevfs",
			Name:      "bytes_written_total",
			Help:      "Bytes written to a mount point's entries, by mount point.",
		}, []string{"mount_point"}),
	}

	r.reg.MustRegister(
		r.filesystemsTotal,
		r.filesystemsMounted,
		r.filesystemsTouched,
		r.topLevelArchives,
		r.maxFilesystemsMounted,
		r.bytesRead,
		r.bytesWritten,
	)
	return r
}

// SetMaximumFileSystemsMounted records the pacemaker's configured
// capacity, reported alongside the gauges computed from live state.
func (r *Registry) SetMaximumFileSystemsMounted(n int) {
	r.maxFilesystemsMounted.Set(float64(n))
}

// AddBytesRead tallies n bytes read against mp, via a callback handed
// to iosocket.NewCountingReader when a controller opens an input
// socket.
func (r *Registry) AddBytesRead(mountPoint string, n int) {
	r.bytesRead.WithLabelValues(mountPoint).Add(float64(n))
}

// AddBytesWritten is the write-direction analogue of AddBytesRead, fed
// from iosocket.NewCountingWriter.
func (r *Registry) AddBytesWritten(mountPoint string, n int) {
	r.bytesWritten.WithLabelValues(mountPoint).Add(float64(n))
}

// refresh recomputes the live-state gauges from r.source immediately
// before they are scraped or introspected, the way backend/cache's
// "cache/stats" rc.Call recomputes its response from live state rather
// than a stale background tally.
func (r *Registry) refresh() (infos []controllerInfo, topLevel int) {
	controllers := r.source.Controllers()
	infos = make([]controllerInfo, 0, len(controllers))

	mounted := 0
	for _, c := range controllers {
		mp := c.MountPoint()
		if !mp.IsHost() {
			mounted++
			if mp.Parent != nil && mp.Parent.IsHost() {
				topLevel++
			}
		}
		infos = append(infos, controllerInfo{MountPoint: mp.String(), Host: mp.IsHost()})
	}

	r.filesystemsTotal.Set(float64(len(controllers)))
	r.filesystemsMounted.Set(float64(mounted))
	r.topLevelArchives.Set(float64(topLevel))
	if r.touch != nil {
		r.filesystemsTouched.Set(float64(r.touch.Len()))
	}
	return infos, topLevel
}

type controllerInfo struct {
	MountPoint string `json:"mountPoint"`
	Host       bool   `json:"host"`
}

type debugManagerResponse struct {
	FileSystemsTotal int              `json:"fileSystemsTotal"`
	TopLevelArchives int              `json:"topLevelArchives"`
	FileSystems      []controllerInfo `json:"fileSystems"`
}

// Handler returns a chi router serving /metrics (via promhttp, against
// r's private registry so process-default collectors don't leak in)
// and /debug/manager, a small JSON introspection endpoint listing
// every live controller — the Go-idiomatic stand-in for the JMX
// attribute browser spec.md excludes only as a transport.
func (r *Registry) Handler() http.Handler {
	promHandler := promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
	mux := chi.NewRouter()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.refresh()
		promHandler.ServeHTTP(w, req)
	}))
	mux.Get("/debug/manager", func(w http.ResponseWriter, req *http.Request) {
		infos, topLevel := r.refresh()
		resp := debugManagerResponse{
			FileSystemsTotal: len(infos),
			TopLevelArchives: topLevel,
			FileSystems:      infos,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return mux
}
