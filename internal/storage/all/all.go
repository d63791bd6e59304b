// Package all registers every storage backend with the factory. Commands
// blank-import it so -storage can select any kind at runtime.
package all

import (
	_ "bookshelf/internal/storage/mssql"
	_ "bookshelf/internal/storage/postgres"
	_ "bookshelf/internal/storage/sqlite"
)
