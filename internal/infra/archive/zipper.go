// Package archive bundles extracted frame files for upload.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type ZipArchiver struct{}

func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{}
}

// CreateArchive writes the frame files into a ZIP at outputPath, preserving
// the given order so entries stay in sample order. JPEG frames are already
// compressed and are stored as-is; anything else is deflated.
func (z *ZipArchiver) CreateArchive(ctx context.Context, filePaths []string, outputPath string) error {
	zipFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer zipFile.Close()

	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	for _, fp := range filePaths {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := addFrameToZip(zipWriter, fp); err != nil {
			return fmt.Errorf("add %s to archive: %w", fp, err)
		}
	}

	return nil
}

func addFrameToZip(zw *zip.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(filename)
	header.Method = zip.Deflate
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		header.Method = zip.Store
	}

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
