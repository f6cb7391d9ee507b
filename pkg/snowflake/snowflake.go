package snowflake

// Snowflake issues time-ordered unique ids. Ids travel as decimal strings in
// JSON so browsers do not round them.
type Snowflake interface {
	Generate() int64
	Format(id int64) string
	Parse(s string) (int64, error)
}
