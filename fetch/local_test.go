package fetch

import (
	"os"
	"path/filepath"
)

func (s *EngineTestSuite) TestDataURLBase64() {
	d := s.engine.Fetch("data:text/plain;base64,SGVsbG8=", Options{Wait: true}, nil)

	s.Equal(200, d.StatusCode())
	s.True(d.OK())
	s.Equal([]byte("Hello"), d.Body())

	ct, ok := d.Header("Content-Type")
	s.True(ok)
	s.Equal("text/plain", ct)

	s.Equal(0, s.dialer.DialCount())
}

func (s *EngineTestSuite) TestDataURLPercentEncoded() {
	d := s.engine.Fetch("data:,hello%20world", Options{Wait: true}, nil)

	s.Equal(200, d.StatusCode())
	s.Equal([]byte("hello world"), d.Body())

	// Media type defaults when the meta section is empty.
	ct, _ := d.Header("Content-Type")
	s.Equal("text/plain", ct)
}

func (s *EngineTestSuite) TestDataURLExplicitMediaType() {
	d := s.engine.Fetch("data:application/json,{}", Options{Wait: true}, nil)

	ct, _ := d.Header("Content-Type")
	s.Equal("application/json", ct)
	s.Equal([]byte("{}"), d.Body())
}

func (s *EngineTestSuite) TestDataURLMalformedEscape() {
	d := s.engine.Fetch("data:,%zz", Options{Wait: true}, nil)

	s.Equal(500, d.StatusCode())
	s.Equal("Invalid data", d.Reason())
	s.True(d.Err())
}

func (s *EngineTestSuite) TestDataURLMalformedBase64() {
	d := s.engine.Fetch("data:;base64,!!!", Options{Wait: true}, nil)

	s.Equal(500, d.StatusCode())
	s.Equal("Invalid data", d.Reason())
}

func (s *EngineTestSuite) TestFileURL() {
	path := filepath.Join(s.T().TempDir(), "page.txt")
	s.Require().NoError(os.WriteFile(path, []byte("file contents"), 0o644))

	d := s.engine.Fetch("file://"+path, Options{Wait: true}, nil)

	s.Equal(200, d.StatusCode())
	s.Equal([]byte("file contents"), d.Body())

	ct, ok := d.Header("Content-Type")
	s.True(ok)
	s.Contains(ct, "text/plain")
}

func (s *EngineTestSuite) TestFileURLMissing() {
	d := s.engine.Fetch("file:///definitely/not/here", Options{Wait: true}, nil)

	s.Equal(500, d.StatusCode())
	s.True(d.Err())
	s.NotEmpty(d.Reason())
}
