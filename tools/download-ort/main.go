// Build-time tool that fetches the native libraries the ORT hugot backend
// links against: the ONNX Runtime shared library and the HuggingFace
// tokenizers static library for the current platform.
//
// Required env: ORT_VERSION       (e.g. "1.23.2")
// Optional env: ORT_LIB_DIR       (default "./lib", also the runtime lookup dir)
//               TOKENIZERS_VERSION (default "1.24.0")
//
// Usage: ORT_VERSION=1.23.2 go run ./tools/download-ort
package main

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// artifact describes one library to install: where its release archive
// lives and the filename to extract from it.
type artifact struct {
	url      string
	filename string
}

func main() {
	ortVersion := os.Getenv("ORT_VERSION")
	if ortVersion == "" {
		fmt.Fprintln(os.Stderr, "ORT_VERSION env var is required")
		os.Exit(1)
	}

	tokVersion := os.Getenv("TOKENIZERS_VERSION")
	if tokVersion == "" {
		tokVersion = "1.24.0"
	}

	destDir := os.Getenv("ORT_LIB_DIR")
	if destDir == "" {
		destDir = "./lib"
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create directory: %v\n", err)
		os.Exit(1)
	}

	artifacts, err := platformArtifacts(ortVersion, tokVersion)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, a := range artifacts {
		if err := install(a, destDir); err != nil {
			fmt.Fprintf(os.Stderr, "install %s: %v\n", a.filename, err)
			os.Exit(1)
		}
	}
}

// platformArtifacts resolves the download URLs for the current GOOS/GOARCH.
func platformArtifacts(ortVersion, tokVersion string) ([]artifact, error) {
	type platform struct {
		ortArchive string
		ortLib     string
		tokArchive string
	}

	platforms := map[string]platform{
		"linux/amd64": {
			ortArchive: fmt.Sprintf("onnxruntime-linux-x64-%s.tgz", ortVersion),
			ortLib:     "libonnxruntime.so",
			tokArchive: "libtokenizers.linux-amd64.tar.gz",
		},
		"linux/arm64": {
			ortArchive: fmt.Sprintf("onnxruntime-linux-aarch64-%s.tgz", ortVersion),
			ortLib:     "libonnxruntime.so",
			tokArchive: "libtokenizers.linux-arm64.tar.gz",
		},
		"darwin/amd64": {
			ortArchive: fmt.Sprintf("onnxruntime-osx-x86_64-%s.tgz", ortVersion),
			ortLib:     "libonnxruntime.dylib",
			tokArchive: "libtokenizers.darwin-x86_64.tar.gz",
		},
		"darwin/arm64": {
			ortArchive: fmt.Sprintf("onnxruntime-osx-arm64-%s.tgz", ortVersion),
			ortLib:     "libonnxruntime.dylib",
			tokArchive: "libtokenizers.darwin-arm64.tar.gz",
		},
	}

	key := runtime.GOOS + "/" + runtime.GOARCH
	p, ok := platforms[key]
	if !ok {
		return nil, fmt.Errorf("no prebuilt libraries for %s", key)
	}

	return []artifact{
		{
			url: fmt.Sprintf("https://github.com/microsoft/onnxruntime/releases/download/v%s/%s",
				ortVersion, p.ortArchive),
			filename: p.ortLib,
		},
		{
			url: fmt.Sprintf("https://github.com/daulet/tokenizers/releases/download/v%s/%s",
				tokVersion, p.tokArchive),
			filename: "libtokenizers.a",
		},
	}, nil
}

// install downloads and extracts an artifact into destDir, skipping work
// when the library is already present.
func install(a artifact, destDir string) error {
	destPath := filepath.Join(destDir, a.filename)
	if _, statErr := os.Stat(destPath); statErr == nil {
		fmt.Printf("%s already exists, skipping\n", destPath)
		return nil
	}

	fmt.Printf("Downloading %s\n", a.url)

	var err error
	delay := 2 * time.Second
	for i := range 4 {
		if i > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}
		if err = fetchAndExtract(a.url, destDir, a.filename); err == nil {
			fmt.Printf("Installed %s\n", destPath)
			return nil
		}
	}
	return err
}

func fetchAndExtract(url, destDir, filename string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	return extractTgz(resp.Body, destDir, filename)
}

// extractTgz scans a gzipped tarball for the named library and writes it to
// destDir. Versioned variants like libonnxruntime.1.23.2.dylib also match.
func extractTgz(body io.Reader, destDir, filename string) error {
	gz, err := gzip.NewReader(body)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer func() { _ = gz.Close() }()

	nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("tar read: %w", err)
		}

		// Symlinks and directories are never the library itself
		if header.Typeflag != tar.TypeReg {
			continue
		}

		base := filepath.Base(header.Name)
		if base != filename && !strings.HasPrefix(base, nameWithoutExt+".") {
			continue
		}

		return writeFile(filepath.Join(destDir, filename), tr)
	}

	return fmt.Errorf("%s not found in archive", filename)
}

func writeFile(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return out.Close()
}
