// Package gdrive uploads wallpapers to a public Google Drive folder so that
// clients can load them through the Drive thumbnail and download endpoints.
package gdrive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/wallrot/wallrot/internal/catalog"
	"github.com/wallrot/wallrot/internal/errors"
	"github.com/wallrot/wallrot/internal/logger"
)

const folderMimeType = "application/vnd.google-apps.folder"

// NewService creates a Drive client from a credentials JSON file. Service
// account keys and stored authorized-user credentials are both accepted;
// no interactive consent flow is run.
func NewService(ctx context.Context, credentialsFile string) (*drive.Service, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.New(err).
			Component("gdrive").
			Category(errors.CategoryConfiguration).
			Context("operation", "read_credentials").
			Build()
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveFileScope)
	if err != nil {
		return nil, errors.New(err).
			Component("gdrive").
			Category(errors.CategoryConfiguration).
			Context("operation", "parse_credentials").
			Build()
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, errors.New(err).
			Component("gdrive").
			Category(errors.CategoryDrive).
			Context("operation", "create_service").
			Build()
	}
	return svc, nil
}

// Uploader creates folders and files on Drive and shares them publicly.
type Uploader struct {
	svc *drive.Service
	log logger.Logger
	now func() time.Time
}

// New wraps a Drive service.
func New(svc *drive.Service, log logger.Logger) *Uploader {
	if log == nil {
		log = logger.Discard()
	}
	return &Uploader{svc: svc, log: log, now: time.Now}
}

func driveError(op string, err error) error {
	return errors.New(err).
		Component("gdrive").
		Category(errors.CategoryDrive).
		Context("operation", op).
		Build()
}

// EnsureFolder returns folderID when it names an existing folder. Otherwise
// it creates a public "Wallpapers-YYYY-MM-DD" folder and returns its id.
func (u *Uploader) EnsureFolder(ctx context.Context, folderID string) (string, error) {
	if folderID != "" {
		f, err := u.svc.Files.Get(folderID).Fields("id", "name", "mimeType").Context(ctx).Do()
		switch {
		case err != nil:
			u.log.Warn("configured folder not accessible, creating a new one",
				logger.String("folder_id", folderID), logger.Error(err))
		case f.MimeType != folderMimeType:
			u.log.Warn("configured folder id is not a folder, creating a new one",
				logger.String("folder_id", folderID), logger.String("mime_type", f.MimeType))
		default:
			u.log.Info("using existing folder", logger.String("folder_id", f.Id), logger.String("name", f.Name))
			return f.Id, nil
		}
	}

	name := "Wallpapers-" + u.now().Format("2006-01-02")
	f, err := u.svc.Files.Create(&drive.File{Name: name, MimeType: folderMimeType}).
		Fields("id").Context(ctx).Do()
	if err != nil {
		return "", driveError("create_folder", err)
	}
	if err := u.makePublic(ctx, f.Id); err != nil {
		return "", err
	}
	u.log.Info("created folder", logger.String("folder_id", f.Id), logger.String("name", name))
	return f.Id, nil
}

// Upload stores the file at path in folderID, shares it with anyone holding
// the link, and returns the new file id.
func (u *Uploader) Upload(ctx context.Context, folderID, path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", errors.New(err).
			Component("gdrive").
			Category(errors.CategoryFileIO).
			Context("operation", "open_upload").
			Build()
	}
	defer src.Close()

	name := filepath.Base(path)
	meta := &drive.File{Name: name, MimeType: catalog.MimeTypeFor(name)}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}

	start := time.Now()
	f, err := u.svc.Files.Create(meta).Media(src).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", driveError("upload_file", fmt.Errorf("upload %s: %w", name, err))
	}
	if err := u.makePublic(ctx, f.Id); err != nil {
		return "", err
	}

	u.log.Debug("uploaded file",
		logger.String("file", name),
		logger.String("file_id", f.Id),
		logger.Duration("duration", time.Since(start)))
	return f.Id, nil
}

func (u *Uploader) makePublic(ctx context.Context, fileID string) error {
	_, err := u.svc.Permissions.Create(fileID, &drive.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).Do()
	if err != nil {
		return driveError("share_file", fmt.Errorf("share %s: %w", fileID, err))
	}
	return nil
}

// Progress reports one finished upload.
type Progress struct {
	Done   int
	Total  int
	File   string
	FileID string
	Err    error
}

// UploadAll uploads paths one at a time and returns file name to file id for
// every success. Individual failures are reported through progress and
// joined into the returned error; uploading continues past them. progress
// may be nil.
func (u *Uploader) UploadAll(ctx context.Context, folderID string, paths []string, progress func(Progress)) (map[string]string, error) {
	uploaded := make(map[string]string, len(paths))
	var errs []error

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		id, err := u.Upload(ctx, folderID, path)
		name := filepath.Base(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			uploaded[name] = id
		}
		if progress != nil {
			progress(Progress{Done: i + 1, Total: len(paths), File: name, FileID: id, Err: err})
		}
	}

	u.log.Info("upload finished",
		logger.Int("uploaded", len(uploaded)),
		logger.Int("failed", len(errs)))
	return uploaded, errors.Join(errs...)
}
