package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/formbot/core/config"
	"github.com/m3rciful/formbot/internal/locale"
	"github.com/m3rciful/formbot/internal/session"
)

// RendererConfig configures the external renderer.
type RendererConfig struct {
	Interpreter    string `yaml:"interpreter" envconfig:"RENDER_INTERPRETER"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"RENDER_TIMEOUT"`
	// WorkDir is where scripts, assets, outputs and downloaded images resolve;
	// empty is the process dir.
	WorkDir string `yaml:"work_dir" envconfig:"RENDER_WORKDIR"`
}

// PathsConfig holds the directories of generated files.
type PathsConfig struct {
	Output string `yaml:"output" envconfig:"OUTPUT_DIR"`
	Images string `yaml:"images" envconfig:"IMAGES_DIR"`
}

// ACLConfig locates the access list.
type ACLConfig struct {
	Path string `yaml:"path" envconfig:"ACL_PATH"`
	// Admins are promoted on every start; the list is only ever extended.
	Admins []string `yaml:"admins" envconfig:"ACL_ADMINS"`
	// ReplyInGroups makes the gate answer rejected users outside private chats.
	ReplyInGroups bool `yaml:"reply_in_groups" envconfig:"ACL_REPLY_IN_GROUPS"`
}

// BroadcastConfig names the chat that receives finished documents.
type BroadcastConfig struct {
	ChatID  int64 `yaml:"chat_id" envconfig:"BROADCAST_CHAT_ID"`
	Enabled bool  `yaml:"enabled" envconfig:"BROADCAST_ENABLED"`
}

// FormConfig selects the product this process serves.
type FormConfig struct {
	Product   string `yaml:"product" envconfig:"FORM_PRODUCT"`
	FormsFile string `yaml:"forms_file" envconfig:"FORMS_FILE"`
}

// LocaleConfig selects the language of user-facing texts.
type LocaleConfig struct {
	Default string `yaml:"default" envconfig:"BOT_LOCALE"`
}

// Config is the full bot configuration: the core sections plus the form bot's own.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage   session.Config  `yaml:"storage"`
	Renderer  RendererConfig  `yaml:"renderer"`
	Paths     PathsConfig     `yaml:"paths"`
	ACL       ACLConfig       `yaml:"acl"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Form      FormConfig      `yaml:"form"`
	Locale    LocaleConfig    `yaml:"locale"`
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config { return &c.Config }

// Load reads path, applies the environment and normalizes every section.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the form bot sections and fills defaults.
func (c *Config) Normalize() error {
	if err := c.Storage.Normalize(); err != nil {
		return err
	}
	c.Form.Product = strings.TrimSpace(c.Form.Product)
	if c.Form.Product == "" {
		return fmt.Errorf("form.product is required")
	}
	if c.Renderer.Interpreter == "" {
		c.Renderer.Interpreter = "python3"
	}
	if c.Renderer.TimeoutSeconds < 0 {
		return fmt.Errorf("renderer.timeout_seconds must be >= 0")
	}
	if c.Renderer.TimeoutSeconds == 0 {
		c.Renderer.TimeoutSeconds = 60
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "OutPut"
	}
	if c.Paths.Images == "" {
		c.Paths.Images = "UserImages"
	}
	if c.ACL.Path == "" {
		c.ACL.Path = "acl.json"
	}
	if c.Broadcast.Enabled && c.Broadcast.ChatID == 0 {
		return fmt.Errorf("broadcast.chat_id is required when broadcast is enabled")
	}
	c.Locale.Default = strings.ToLower(strings.TrimSpace(c.Locale.Default))
	switch c.Locale.Default {
	case "":
		c.Locale.Default = locale.Fa
	case locale.Fa, locale.En:
	default:
		return fmt.Errorf("invalid locale.default %q; allowed: fa, en", c.Locale.Default)
	}
	return nil
}

// BroadcastChatID returns the broadcast target, 0 when disabled.
func (c *Config) BroadcastChatID() int64 {
	if !c.Broadcast.Enabled {
		return 0
	}
	return c.Broadcast.ChatID
}
