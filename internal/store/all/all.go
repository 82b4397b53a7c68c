// Package all wires every built-in store backend into the store factory.
// Import it for side effects:
//
//	import _ "github.com/JonMunkholm/tpcload/internal/store/all"
//
// after which store.Open accepts the drivers "postgres", "sqlite" and "mysql".
package all

import (
	_ "github.com/JonMunkholm/tpcload/internal/store/mysql"
	_ "github.com/JonMunkholm/tpcload/internal/store/postgres"
	_ "github.com/JonMunkholm/tpcload/internal/store/sqlite"
)
