package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMissingFileReturnsDefault(t *testing.T) {
	servers, err := Parse(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, DefaultPort, servers[0].Port)
	assert.Equal(t, DefaultHost, servers[0].Host)
}

func TestParseEmptyFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.conf")
	require.NoError(t, os.WriteFile(path, []byte("   \n\t\n"), 0o644))

	_, err := Parse(path)
	assert.Error(t, err)
}

func TestParseServerBlockWithLocations(t *testing.T) {
	conf := `
server {
    listen 9090;
    host 127.0.0.1;
    root /srv/www;
    client_max_body_size 2M;
    allow_methods GET POST;

    location /uploads {
        upload_path /srv/www/uploads;
        allow_methods GET POST DELETE;
        autoindex on;
    }

    location ~ .bla {
        allow_methods GET;
        compat_escape_hatch on;
    }
}
`
	path := filepath.Join(t.TempDir(), "webserv.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	servers, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, servers, 1)

	s := servers[0]
	assert.Equal(t, 9090, s.Port)
	assert.Equal(t, "127.0.0.1", s.Host)
	assert.EqualValues(t, 2<<20, s.MaxBodySize)
	require.Len(t, s.Locations, 2)

	uploads := s.Locations[0]
	assert.Equal(t, "/uploads", uploads.Path)
	assert.True(t, uploads.Autoindex)
	assert.True(t, uploads.AllowsMethod("DELETE"))

	bla := s.Locations[1]
	assert.True(t, bla.IsRegex)
	assert.True(t, bla.CompatEscapeHatch)
	assert.EqualValues(t, CompatEscapeHatchMaxBody, bla.EffectiveMaxBodySize(s))
}

func TestParseRejectsInvalidPort(t *testing.T) {
	conf := `server { listen 70000; root /tmp; }`
	path := filepath.Join(t.TempDir(), "bad.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	_, err := Parse(path)
	assert.Error(t, err)
}

func TestParseSizeSuffixes(t *testing.T) {
	assert.EqualValues(t, 100, parseSize("100"))
	assert.EqualValues(t, 1<<10, parseSize("1K"))
	assert.EqualValues(t, 4<<20, parseSize("4M"))
	assert.EqualValues(t, 1<<30, parseSize("1g"))
}

func TestEffectiveMaxBodySizeInheritsFromServer(t *testing.T) {
	s := newDefaultServer()
	s.MaxBodySize = 3 << 20
	loc := newDefaultLocation()
	assert.EqualValues(t, 3<<20, loc.EffectiveMaxBodySize(s))

	loc.MaxBodySize = 1 << 20
	assert.EqualValues(t, 1<<20, loc.EffectiveMaxBodySize(s))
}
