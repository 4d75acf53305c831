// Standalone tool that downloads the all-MiniLM-L6-v2 sentence-transformer
// model in ONNX format for hugot embedding.
//
// Usage: download-model <dest>
//
// The destination should be a subdirectory of the model cache, e.g.
// ~/.findex/models/all-MiniLM-L6-v2. The findex server picks up any
// cache subdirectory containing tokenizer.json.
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const repoURL = "https://huggingface.co/sentence-transformers/all-MiniLM-L6-v2/resolve/main"

// modelFiles lists the repository paths hugot needs for feature extraction.
var modelFiles = []string{
	"config.json",
	"tokenizer.json",
	"tokenizer_config.json",
	"special_tokens_map.json",
	"onnx/model.onnx",
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: download-model <dest>")
		os.Exit(1)
	}
	dest := os.Args[1]

	// Skip if already downloaded.
	if _, err := os.Stat(filepath.Join(dest, "tokenizer.json")); err == nil {
		if _, err := os.Stat(filepath.Join(dest, "onnx", "model.onnx")); err == nil {
			fmt.Printf("Model already present at %s\n", dest)
			return
		}
	}

	fmt.Printf("Downloading model to %s...\n", dest)

	for _, file := range modelFiles {
		if err := fetch(repoURL+"/"+file, filepath.Join(dest, filepath.FromSlash(file))); err != nil {
			fmt.Fprintf(os.Stderr, "download %s: %v\n", file, err)
			os.Exit(1)
		}
		fmt.Printf("  %s\n", file)
	}

	fmt.Printf("Model ready at %s\n", dest)
}

// fetch downloads url to path, retrying transient failures. The file is
// written to a temp name and renamed so an aborted run never leaves a
// partial file where the server would find it.
func fetch(url, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	var err error
	delay := 2 * time.Second
	for i := range 4 {
		if i > 0 {
			fmt.Fprintf(os.Stderr, "retry in %s: %v\n", delay, err)
			time.Sleep(delay)
			delay *= 2
		}

		if err = download(url, path); err == nil {
			return nil
		}
	}
	return err
}

func download(url, path string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}
