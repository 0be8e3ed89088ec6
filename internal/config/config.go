// Package config loads the nginx-flavoured server configuration file
// described in the wire protocol's external interface: brace-delimited
// server/location blocks, whitespace-insensitive, "#" line comments,
// ";" statement terminators.
//
// This package owns only the grammar contract; everything downstream
// (router, engine) consumes the parsed, validated tree read-only.
package config

import "time"

const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8080
	DefaultMaxBodySize      = 1 << 20 // 1 MiB
	DefaultKeepAliveTimeout = 60 * time.Second
	DefaultCGITimeout       = 30 * time.Second

	// CompatEscapeHatchMaxBody is the raised body-size ceiling applied
	// to locations with compat_escape_hatch on, reproducing the
	// original tester-compatibility hack for .bla uploads (spec.md §9
	// Open Questions).
	CompatEscapeHatchMaxBody = 64 << 20
)

// Location overrides or extends a Server's defaults for requests whose
// URI matches its Path (prefix match) or, when IsRegex is set, one of
// the two hard-coded suffix patterns described in spec.md §6.
type Location struct {
	Path    string
	IsRegex bool

	Root         string
	Index        string
	Autoindex    bool
	UploadPath   string
	CGIPath      string
	CGIExtension string
	MaxBodySize  int64 // 0 means inherit from the server

	AllowedMethods []string
	Redirections   map[int]string

	// CompatEscapeHatch, when true on a regex location, permits POST
	// to a matching URI regardless of AllowedMethods and raises the
	// effective max body size to CompatEscapeHatchMaxBody. See spec.md
	// §9 Open Questions and SPEC_FULL.md §4.9.
	CompatEscapeHatch bool
}

// Server is one parsed, validated server{} block.
type Server struct {
	Host       string
	Port       int
	ServerName string
	Root       string
	Index      string

	MaxBodySize    int64
	AllowedMethods []string
	Autoindex      bool
	UploadPath     string
	CGIPath        string
	CGIExtensions  map[string]string
	ErrorPages     map[int]string

	KeepAliveTimeout time.Duration
	CGITimeout       time.Duration

	Locations []*Location
}

// AllowsMethod reports whether method is in the server's default
// allow-list.
func (s *Server) AllowsMethod(method string) bool {
	for _, m := range s.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}

// AllowsMethod reports whether method is in the location's allow-list.
func (l *Location) AllowsMethod(method string) bool {
	for _, m := range l.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}

// EffectiveMaxBodySize resolves the location's override against the
// server default, applying the compat escape hatch when armed.
func (l *Location) EffectiveMaxBodySize(server *Server) int64 {
	if l != nil && l.CompatEscapeHatch {
		return CompatEscapeHatchMaxBody
	}
	if l != nil && l.MaxBodySize > 0 {
		return l.MaxBodySize
	}
	return server.MaxBodySize
}

func newDefaultServer() *Server {
	return &Server{
		Host:       DefaultHost,
		Port:       DefaultPort,
		ServerName: "localhost",
		Root:       "www",
		Index:      "index.html",

		MaxBodySize:    DefaultMaxBodySize,
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		Autoindex:      false,
		UploadPath:     "www/uploads",
		CGIPath:        "www/cgi-bin",
		CGIExtensions: map[string]string{
			".php": "/usr/bin/php-cgi",
			".py":  "/usr/bin/python3",
			".pl":  "/usr/bin/perl",
			".sh":  "/bin/bash",
		},
		ErrorPages: map[int]string{
			400: "www/error/400.html",
			403: "www/error/403.html",
			404: "www/error/404.html",
			500: "www/error/500.html",
			502: "www/error/502.html",
			504: "www/error/504.html",
		},
		KeepAliveTimeout: DefaultKeepAliveTimeout,
		CGITimeout:       DefaultCGITimeout,
	}
}

func newDefaultLocation() *Location {
	return &Location{
		Index:          "index.html",
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		Redirections:   map[int]string{},
	}
}
