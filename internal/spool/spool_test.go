package spool

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	body := []byte("HELLO WORLD")
	n, err := s.Write(body)
	require.NoError(t, err)
	require.Equal(t, len(body), n)
	require.EqualValues(t, len(body), s.Size())

	r, err := s.Reader()
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, body, got)

	path := s.Path()
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err), "spool file should be unlinked on Close")
}

func TestTakeSurvivesClose(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	_, err = s.Write([]byte("x"))
	require.NoError(t, err)

	path := s.Path()
	taken := s.Take()
	require.NoError(t, taken.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "taken spool must survive its owner's Close")

	require.NoError(t, os.Remove(path))
}
