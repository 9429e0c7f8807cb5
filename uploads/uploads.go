package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"trendsetter/utils"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	MaxUploadSize = 5 << 20
	// MaxRequestSize leaves room for the other multipart fields.
	MaxRequestSize = MaxUploadSize + 1<<20

	PublicPrefix = "/uploads/"
	sniffLength  = 512
)

var (
	ErrTooLarge = utils.NewValidationError("File too large (max %d MB)", MaxUploadSize>>20)
	ErrNotImage = utils.NewValidationError("Only image files are allowed")

	extensionRegex = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,8}$`)
)

// Store writes uploaded images to a directory served under PublicPrefix.
type Store struct {
	dir   string
	clock utils.Clock
}

func NewStore(dir string, clock utils.Clock) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{
		dir:   dir,
		clock: clock,
	}, nil
}

// Save copies the uploaded file to disk and returns its public URL. Files
// that are too large or not images are rejected before anything is written.
func (s *Store) Save(fieldName string, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxUploadSize {
		return "", ErrTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]
	if !isImage(head, header.Header.Get("Content-Type")) {
		return "", ErrNotImage
	}

	name := fmt.Sprintf("%s-%d-%s%s", fieldName, s.clock.Now().UnixMilli(), uuid.NewString(), extension(header.Filename))
	path := filepath.Join(s.dir, name)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}

	// One extra byte detects bodies larger than the declared size
	written, err := io.Copy(out, io.LimitReader(io.MultiReader(bytes.NewReader(head), file), MaxUploadSize+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > MaxUploadSize {
		err = ErrTooLarge
	}
	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			log.Warningf("Error removing partial upload %s: %v", name, removeErr)
		}
		if errors.Is(err, ErrTooLarge) {
			return "", err
		}
		return "", fmt.Errorf("write upload: %w", err)
	}

	return PublicPrefix + name, nil
}

// Handler serves stored files. Directory listings are not exposed.
func (s *Store) Handler() http.Handler {
	files := http.StripPrefix(PublicPrefix, http.FileServer(http.Dir(s.dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}

func isImage(head []byte, declared string) bool {
	sniffed := http.DetectContentType(head)
	if strings.HasPrefix(sniffed, "image/") {
		return true
	}
	// Formats the sniffer does not know, like HEIC, fall back to the
	// declared type as long as the content is not recognisably something else.
	if sniffed != "application/octet-stream" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	return err == nil && strings.HasPrefix(mediaType, "image/")
}

func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extensionRegex.MatchString(ext) {
		return ""
	}
	return ext
}

// Remove deletes a file previously returned by Save. Unknown URLs are ignored.
func (s *Store) Remove(publicUrl string) error {
	name, ok := strings.CutPrefix(publicUrl, PublicPrefix)
	if !ok || name == "" || name != filepath.Base(name) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
