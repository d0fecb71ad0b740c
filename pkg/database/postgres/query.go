package postgres

import "github.com/Masterminds/squirrel"

// QueryBuilder 使用 $1 占位符的 squirrel 构建器
var QueryBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
