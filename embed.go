package ojohoe

import "embed"

//go:embed migrations/*.sql
var MigrationsFS embed.FS

//go:embed prompts/*.json
var PromptsFS embed.FS
