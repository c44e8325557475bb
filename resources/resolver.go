package resources

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yargevad/filepathx"
)

// WriteCounter counts the number of bytes written to it, and every 10 seconds,
// it prints a message reporting the number of bytes written so far.
type WriteCounter struct {
	Total uint64
	Last  time.Time
	Path  string
	Size  uint64
}

func (wc *WriteCounter) Write(p []byte) (int, error) {
	n := len(p)
	wc.Total += uint64(n)
	if time.Since(wc.Last).Seconds() > 10 {
		wc.Last = time.Now()
		if wc.Size > 0 {
			log.Printf("Downloading %s... %s / %s completed.",
				wc.Path, humanize.Bytes(wc.Total), humanize.Bytes(wc.Size))
		} else {
			log.Printf("Downloading %s... %s completed.",
				wc.Path, humanize.Bytes(wc.Total))
		}
	}
	return n, nil
}

// GlobCorpus
// Given a directory path, recursively finds all `.csv` files, in path order.
func GlobCorpus(dirPath string) ([]string, error) {
	csvPaths, err := filepathx.Glob(dirPath + "/**/*.csv")
	if err != nil {
		return nil, err
	}
	if len(csvPaths) == 0 {
		return nil, fmt.Errorf("%s does not contain any .csv files", dirPath)
	}
	sort.Strings(csvPaths)
	return csvPaths, nil
}

// Download streams uri into targetPath. The data lands in a `.part` file
// first, which is renamed into place once complete and removed on failure.
func (fetcher *Fetcher) Download(uri string, targetPath string) (uint64,
	error) {
	rsrcSize, sizeErr := fetcher.Size(uri)
	if sizeErr != nil {
		return 0, fmt.Errorf("cannot retrieve `%s`: %w", uri, sizeErr)
	}
	rsrcReader, rsrcErr := fetcher.Fetch(uri)
	if rsrcErr != nil {
		return 0, fmt.Errorf("cannot retrieve `%s`: %w", uri, rsrcErr)
	}
	defer rsrcReader.Close()

	partPath := targetPath + ".part"
	partFile, partErr := os.OpenFile(partPath,
		os.O_TRUNC|os.O_RDWR|os.O_CREATE, 0644)
	if partErr != nil {
		return 0, fmt.Errorf("error opening '%s' for write: %w",
			partPath, partErr)
	}
	counter := &WriteCounter{
		Last: time.Now(),
		Path: uri,
		Size: rsrcSize,
	}
	bytesDownloaded, ioErr := io.Copy(partFile,
		io.TeeReader(rsrcReader, counter))
	closeErr := partFile.Close()
	if ioErr == nil {
		ioErr = closeErr
	}
	if ioErr == nil && rsrcSize > 0 && uint64(bytesDownloaded) != rsrcSize {
		ioErr = fmt.Errorf("expected %d bytes, received %d", rsrcSize,
			bytesDownloaded)
	}
	if ioErr != nil {
		os.Remove(partPath)
		return 0, fmt.Errorf("error downloading '%s': %w", uri, ioErr)
	}
	if renameErr := os.Rename(partPath, targetPath); renameErr != nil {
		os.Remove(partPath)
		return 0, renameErr
	}
	log.Printf("Downloaded %s... %s completed.", uri,
		humanize.Bytes(uint64(bytesDownloaded)))
	return uint64(bytesDownloaded), nil
}

// ResolveCorpus
// Resolves a corpus source to the local CSV paths to read. Local files and
// directories are used in place. Remote sources are downloaded to
// `dir/name` unless that file already exists.
func (fetcher *Fetcher) ResolveCorpus(source string, dir string,
	name string) ([]string, error) {
	if !IsRemote(source) {
		stat, statErr := os.Stat(source)
		if statErr != nil {
			return nil, fmt.Errorf("corpus source %s: %w", source, statErr)
		}
		if stat.IsDir() {
			return GlobCorpus(source)
		}
		return []string{source}, nil
	}

	targetPath := path.Join(dir, name)
	if targetStat, statErr := os.Stat(targetPath); statErr == nil {
		if targetStat.IsDir() {
			return nil, fmt.Errorf("%s is a directory", targetPath)
		}
		log.Printf("Skipping %s... %s already exists.", source, targetPath)
		return []string{targetPath}, nil
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return nil, statErr
	}

	if mkdirErr := os.MkdirAll(dir, 0755); mkdirErr != nil {
		return nil, mkdirErr
	}
	log.Printf("Downloading %s to %s...", source, targetPath)
	if _, dlErr := fetcher.Download(source, targetPath); dlErr != nil {
		return nil, dlErr
	}
	return []string{targetPath}, nil
}
