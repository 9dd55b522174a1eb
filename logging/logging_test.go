package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithDest(t *testing.T) {
	var buf bytes.Buffer
	SetLogLevel("info")
	logger := NewWithDest(&buf, "test")

	logger.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Error("message was not written to the destination")
	}
	if !strings.Contains(buf.String(), "test") {
		t.Error("logger name missing from output")
	}

	buf.Reset()
	logger.Debug("quiet")
	if buf.Len() != 0 {
		t.Error("debug message was written at info level")
	}
}

func BenchmarkInnerLogger(b *testing.B) {
	SetLogLevel("error")
	logger := New("test").(*wrapper).inner

	for i := 0; i < b.N; i++ {
		logger.Info("test")
	}
}

func BenchmarkWrappedLoggerNoPackages(b *testing.B) {
	SetLogLevel("error")
	logger := New("test")

	for i := 0; i < b.N; i++ {
		logger.Info("test")
	}
}

func BenchmarkWrappedLoggerWithPackage(b *testing.B) {
	SetLogLevel("error")
	SetPackageLogLevel("foo", "error")
	logger := New("test")

	for i := 0; i < b.N; i++ {
		logger.Info("test")
	}
}
