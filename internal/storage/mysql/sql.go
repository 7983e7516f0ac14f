package mysql

import "strings"

// `key` and `value` are reserved; keep them quoted everywhere.
const getSQL = "SELECT `value` FROM kv_store WHERE `key` = ?"

const upsertSQL = "INSERT INTO kv_store (`key`, `value`) VALUES (?, ?)\n" +
	"ON DUPLICATE KEY UPDATE `value` = VALUES(`value`), updated_at = CURRENT_TIMESTAMP"

const deleteSQL = "DELETE FROM kv_store WHERE `key` = ?"

const deletePrefixSQL = "DELETE FROM kv_store WHERE `key` LIKE ?"

// The compare-and-swap statements. JSON equality is semantic, so a value read
// back in MySQL's normalized form still matches.
const insertSQL = "INSERT INTO kv_store (`key`, `value`) VALUES (?, ?)"

const swapSQL = "UPDATE kv_store SET `value` = ?, updated_at = CURRENT_TIMESTAMP\n" +
	"WHERE `key` = ? AND `value` = CAST(? AS JSON)"

const deleteIfSQL = "DELETE FROM kv_store WHERE `key` = ? AND `value` = CAST(? AS JSON)"

// erDupEntry is MySQL's duplicate primary key error number.
const erDupEntry = 1062

// Backslash is the default LIKE escape in MySQL.
const prefixSQL = "SELECT `key`, `value` FROM kv_store WHERE `key` LIKE ? ORDER BY `key`"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix turns a raw key prefix into a LIKE pattern matching it literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
