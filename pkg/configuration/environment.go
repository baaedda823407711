package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/weloop/lci-importer/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"lci"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type ImportOptions struct {
	// Directory holding the LCI workbooks and the fixed-path override workbook.
	ExcelDir    string `env:"LCI_EXCEL_DIR" envDefault:"lci_excels"`
	MappingFile string `env:"LCI_MAPPING_FILE" envDefault:"biosphere_mapping_fix.xlsx"`

	// Database labels inside the target store. The foreground database receives
	// the imported activities; background and biosphere are only linked against.
	ForegroundDB string `env:"LCI_FOREGROUND_DB" envDefault:"lci_metals"`
	BackgroundDB string `env:"LCI_BACKGROUND_DB" envDefault:"ecoinvent 3.10 cutoff"`
	BiosphereDB  string `env:"LCI_BIOSPHERE_DB" envDefault:"biosphere3"`
}

func (o *ImportOptions) Validate() error {
	fg := strings.TrimSpace(o.ForegroundDB)
	if fg == "" {
		return fmt.Errorf("LCI_FOREGROUND_DB must not be empty")
	}
	if strings.TrimSpace(o.BackgroundDB) == "" {
		return fmt.Errorf("LCI_BACKGROUND_DB must not be empty")
	}
	if strings.TrimSpace(o.BiosphereDB) == "" {
		return fmt.Errorf("LCI_BIOSPHERE_DB must not be empty")
	}
	if fg == strings.TrimSpace(o.BackgroundDB) || fg == strings.TrimSpace(o.BiosphereDB) {
		return fmt.Errorf("LCI_FOREGROUND_DB %q must differ from the background and biosphere databases", fg)
	}
	return nil
}

type Configuration struct {
	Database DatabaseOptions
	Import   ImportOptions

	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/lci-data.log"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
