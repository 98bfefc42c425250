package commands

import (
	"os"

	ferrors "git.home.luguber.info/inful/conveyor/internal/foundation/errors"
)

const exampleConfig = `# conveyor project configuration
input: content
output: public

logging:
  level: info
  format: text

pipelines:
  - name: assets
    input: ["assets/**", "!assets/**/*.psd"]
    write: true

  - name: content
    dependencies: [assets]
    input: ["**/*.md", "!drafts/**"]
    front_matter: true
    directory_metadata: true
    markdown: true
    slug: true
    write: true
    link_check: true

metadata:
  preserve_files: false
  default_inherited: false
  default_replace: false

watch:
  debounce: 300ms
  # schedule: "*/30 * * * *"

preview:
  enabled: true
  addr: localhost:8972
  metrics: false

notify:
  enabled: false
  # url: nats://localhost:4222
  # subject: conveyor.passes

passlog:
  # path: .conveyor/passes.db
`

// InitConfig writes an example configuration file.
func InitConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}
	if err := os.WriteFile(path, []byte(exampleConfig), 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write config file").
			WithContext("path", path).
			Build()
	}
	return nil
}
