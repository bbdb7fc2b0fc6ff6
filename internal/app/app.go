package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"assetrepo/internal/client"
	"assetrepo/internal/config"
	"assetrepo/internal/credentials"
	"assetrepo/internal/database"
	"assetrepo/internal/filter"
	"assetrepo/internal/jsonbind"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

// Options select what a single App invocation works on.
type Options struct {
	// Repository names the configured repository; empty means the first.
	Repository string
	// Operation identifies the CLI command being run (e.g. "AddAsset").
	Operation  string
	Parameters string

	// Verbose copies debug records to Stderr as well as the log file.
	Verbose bool
	Stderr  io.Writer

	// Passphrase is asked for the passphrase of an encrypted password file
	// when ASSETREPO_PASSPHRASE is not set.
	Passphrase credentials.PassphraseFunc

	Clock repository.Clock
	// IDs names each run in the log file.
	IDs repository.IDGenerator
}

// App is the application layer between the CLI and the repository clients.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw strings and paths, and records write operations in the
// history database on Close.
type App struct {
	cfg     *config.Config
	repo    config.RepositoryConfig
	client  repository.ReadableClient
	history database.History
	logger  *slog.Logger
	op      *Operation
	logFile *os.File
	closed  bool
}

// New creates a fully wired App from the given config. The caller must call
// Close when done.
func New(cfg *config.Config, opts Options) (*App, error) {
	repoCfg, err := cfg.Repository(opts.Repository)
	if err != nil {
		return nil, err
	}

	clock := opts.Clock
	if clock == nil {
		clock = repository.RealClock{}
	}

	consoleLevel := slog.LevelWarn
	if opts.Verbose {
		consoleLevel = slog.LevelDebug
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	ids := opts.IDs
	if ids == nil {
		ids = repository.UUIDGenerator{}
	}
	opID := ids.New()
	logger, logFile, err := newLogger(cfg.LogDir, opID, stderr, consoleLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	if repoCfg.Password == "" && repoCfg.PasswordFile != "" {
		passphrase, err := credentials.EnvPassphrase(EnvPassphrase, opts.Passphrase)(
			fmt.Sprintf("Passphrase for %s: ", repoCfg.Name))
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("reading passphrase: %w", err)
		}
		password, err := credentials.NewStore().Open(repoCfg.PasswordFile, passphrase)
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("opening password file for %s: %w", repoCfg.Name, err)
		}
		repoCfg.Password = password
	}

	c, err := client.NewClientFromConfig(repoCfg,
		client.WithLogger(&slogAdapter{l: logger}),
		client.WithStrictUnknownFields(cfg.StrictUnknownFields),
	)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating repository client: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	return &App{
		cfg:     cfg,
		repo:    repoCfg,
		client:  c,
		history: db,
		logger:  logger,
		op:      NewOperation(opts.Operation, opts.Parameters, repoCfg.Name),
		logFile: logFile,
	}, nil
}

// Repository returns the name of the repository this App works on.
func (a *App) Repository() string {
	return a.repo.Name
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. Only commands that write to the repository call it.
func (a *App) persistOperation(ctx context.Context) error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.history.CreateOperation(ctx, a.op.Operation, a.op.Parameters, a.op.Repository)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// writer persists the operation and returns the repository as a
// WriteableClient, or an error for read-only repositories.
func (a *App) writer(ctx context.Context) (repository.WriteableClient, error) {
	w, ok := a.client.(repository.WriteableClient)
	if !ok {
		return nil, fmt.Errorf("repository %s (%s) is read-only", a.repo.Name, a.repo.Type)
	}
	if err := a.persistOperation(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// track records the outcome of a write for Close.
func (a *App) track(assetID string, err error) error {
	if assetID != "" {
		a.op.AssetID = assetID
	}
	if err != nil {
		a.op.Fail()
		a.logger.Error("operation failed", "operation", a.op.Operation, "error", err)
	}
	return err
}

// Status checks that the repository is reachable and usable.
func (a *App) Status(ctx context.Context) error {
	return a.client.CheckRepositoryStatus(ctx)
}

// Query holds the raw list filters accepted on the command line.
type Query struct {
	Types      []string
	ProductIDs []string
	Visibility string
	Versions   []string
	// Unbounded restricts the result to assets with no maximum product
	// version. Versions are ignored when set.
	Unbounded bool
}

// ListAssets returns the assets matching q, or every asset when q is empty.
func (a *App) ListAssets(ctx context.Context, q Query) ([]*model.Asset, error) {
	types, err := parseTypes(q.Types)
	if err != nil {
		return nil, err
	}
	var visibility model.Visibility
	if q.Visibility != "" {
		if visibility, err = model.ParseVisibility(q.Visibility); err != nil {
			return nil, err
		}
	}

	if q.Unbounded {
		return a.client.GetAssetsWithUnboundedMaxVersion(ctx, types, q.ProductIDs, visibility)
	}
	if filter.ForQuery(types, q.ProductIDs, visibility, q.Versions).IsEmpty() {
		return a.client.GetAllAssets(ctx)
	}
	return a.client.GetAssets(ctx, types, q.ProductIDs, visibility, q.Versions)
}

func (a *App) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	return a.client.GetAsset(ctx, id)
}

// FindAssets searches asset names and descriptions.
func (a *App) FindAssets(ctx context.Context, search string, rawTypes []string) ([]*model.Asset, error) {
	types, err := parseTypes(rawTypes)
	if err != nil {
		return nil, err
	}
	return a.client.FindAssets(ctx, search, types)
}

// AddAsset reads an asset from the JSON file at path and adds it to the
// repository.
func (a *App) AddAsset(ctx context.Context, path string) (*model.Asset, error) {
	asset, err := a.readAsset(path)
	if err != nil {
		return nil, err
	}
	w, err := a.writer(ctx)
	if err != nil {
		return nil, err
	}
	created, err := w.AddAsset(ctx, asset)
	if err != nil {
		return nil, a.track("", err)
	}
	a.logger.Info("asset added", "id", created.ID, "name", created.Name)
	return created, a.track(created.ID, nil)
}

// UpdateAsset replaces the asset whose id is given in the JSON file at path.
func (a *App) UpdateAsset(ctx context.Context, path string) (*model.Asset, error) {
	asset, err := a.readAsset(path)
	if err != nil {
		return nil, err
	}
	if asset.ID == "" {
		return nil, fmt.Errorf("%s has no _id to update", path)
	}
	w, err := a.writer(ctx)
	if err != nil {
		return nil, err
	}
	updated, err := w.UpdateAsset(ctx, asset)
	if err != nil {
		return nil, a.track(asset.ID, err)
	}
	a.logger.Info("asset updated", "id", updated.ID)
	return updated, a.track(updated.ID, nil)
}

func (a *App) DeleteAsset(ctx context.Context, id string) error {
	w, err := a.writer(ctx)
	if err != nil {
		return err
	}
	return a.track(id, w.DeleteAssetAndAttachments(ctx, id))
}

// AttachmentInput describes an attachment given on the command line: a
// local file at Path or an external URL.
type AttachmentInput struct {
	Path string
	URL  string
	Name string
	Type string
	// Locale is a BCP 47 tag or the underscore form used on the wire.
	Locale string
	// Replace updates the existing attachment with the same name.
	Replace bool
}

// AddAttachment uploads or links an attachment to an asset.
func (a *App) AddAttachment(ctx context.Context, assetID string, in AttachmentInput) (*model.Attachment, error) {
	summary, err := in.summary()
	if err != nil {
		return nil, err
	}
	w, err := a.writer(ctx)
	if err != nil {
		return nil, err
	}
	var att *model.Attachment
	if in.Replace {
		att, err = w.UpdateAttachment(ctx, assetID, summary)
	} else {
		att, err = w.AddAttachment(ctx, assetID, summary)
	}
	return att, a.track(assetID, err)
}

func (in AttachmentInput) summary() (*model.AttachmentSummary, error) {
	if (in.Path == "") == (in.URL == "") {
		return nil, fmt.Errorf("exactly one of a file or a url is required")
	}
	if in.Type == "" {
		return nil, fmt.Errorf("attachment type is required")
	}
	attType, err := model.ParseAttachmentType(in.Type)
	if err != nil {
		return nil, err
	}
	att := &model.Attachment{Type: attType}
	if in.Locale != "" {
		if att.Locale, err = jsonbind.ParseLocale(in.Locale); err != nil {
			return nil, fmt.Errorf("parsing locale %q: %w", in.Locale, err)
		}
	}
	name := in.Name
	if name == "" && in.Path != "" {
		name = filepath.Base(in.Path)
	}
	return &model.AttachmentSummary{Name: name, Path: in.Path, URL: in.URL, Attachment: att}, nil
}

// GetAttachment copies the content of an asset's attachment to w and
// returns the number of bytes written.
func (a *App) GetAttachment(ctx context.Context, assetID, attachmentID string, w io.Writer) (int64, error) {
	asset, err := a.client.GetAsset(ctx, assetID)
	if err != nil {
		return 0, err
	}
	att := asset.AttachmentByID(attachmentID)
	if att == nil {
		att = asset.AttachmentByName(attachmentID)
	}
	if att == nil {
		return 0, fmt.Errorf("asset %s has no attachment %s: %w", assetID, attachmentID, repository.ErrAssetNotFound)
	}
	rc, err := a.client.GetAttachment(ctx, asset, att)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	n, err := io.Copy(w, rc)
	if err != nil {
		return n, fmt.Errorf("copying attachment %s: %w", att.Name, err)
	}
	return n, nil
}

func (a *App) DeleteAttachment(ctx context.Context, assetID, attachmentID string) error {
	w, err := a.writer(ctx)
	if err != nil {
		return err
	}
	return a.track(assetID, w.DeleteAttachment(ctx, assetID, attachmentID))
}

// UpdateState applies a workflow action such as "publish" to an asset.
func (a *App) UpdateState(ctx context.Context, assetID, rawAction string) error {
	action, err := model.ParseStateAction(rawAction)
	if err != nil {
		return err
	}
	w, err := a.writer(ctx)
	if err != nil {
		return err
	}
	return a.track(assetID, w.UpdateState(ctx, assetID, action))
}

// History returns the most recent recorded operations.
func (a *App) History(ctx context.Context, limit int) ([]*database.Operation, error) {
	return a.history.ListOperations(ctx, limit)
}

// Close finalizes the operation and closes all resources. Calls after the
// first do nothing.
func (a *App) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	var firstErr error

	if a.op.Persisted() {
		if err := a.history.FinishOperation(context.Background(), a.op.ID, a.op.Status, a.op.AssetID); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.history.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

func (a *App) readAsset(path string) (*model.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset file: %w", err)
	}
	asset, err := model.Assets.Unmarshal(data, jsonbind.Options{StrictUnknownFields: a.cfg.StrictUnknownFields})
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return asset, nil
}

func parseTypes(raw []string) ([]model.ResourceType, error) {
	types := make([]model.ResourceType, 0, len(raw))
	for _, r := range raw {
		t, err := model.ParseResourceType(r)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// SetPassword seals password into the password_file of the named
// repository, encrypted to passphrase. It returns the file written.
func SetPassword(cfg *config.Config, repoName, passphrase, password string, opts ...credentials.Option) (string, error) {
	repoCfg, err := cfg.Repository(repoName)
	if err != nil {
		return "", err
	}
	if repoCfg.PasswordFile == "" {
		return "", fmt.Errorf("repository %s has no password_file configured", repoCfg.Name)
	}
	if err := credentials.NewStore(opts...).Seal(repoCfg.PasswordFile, passphrase, password); err != nil {
		return "", err
	}
	return repoCfg.PasswordFile, nil
}
