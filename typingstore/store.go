// Package typingstore persists the typing a validation run proves: each
// (node, shape-index) verdict is stored as a two-argument Datalog atom —
// conforms(node, shape) or violates(node, shape) — behind the Mangle
// FactStore interface, so a later engine over the same schema and graph
// can warm-start from a prior run's typing. SQLite is the default
// backend; PostgreSQL is available for shared caches.
package typingstore

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"strings"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"
)

// Counter for generating unique in-memory database names.
var inMemoryDBCounter atomic.Uint64

// ConformsPredicate and ViolatesPredicate are the only predicates the
// store accepts: the positive and negative halves of a typing.
var (
	ConformsPredicate = ast.PredicateSym{Symbol: "conforms", Arity: 2}
	ViolatesPredicate = ast.PredicateSym{Symbol: "violates", Arity: 2}
)

// Store implements the Mangle FactStore interface over a SQL database
// with one row per verdict. The schema is fixed — verdict, node, shape —
// rather than generic JSON args, because the typing domain has exactly
// two predicates of known arity.
type Store struct {
	db     *sql.DB
	ownsDB bool
	// dialect handles SQL syntax differences between databases.
	dialect dialect
	// Prepared statements for the hot Add/Contains path.
	addStmt      *sql.Stmt
	removeStmt   *sql.Stmt
	containsStmt *sql.Stmt
}

// Verify that Store implements the FactStoreWithRemove interface.
var _ factstore.FactStoreWithRemove = (*Store)(nil)

// ConformsAtom builds the positive verdict atom for a node and shape
// index.
func ConformsAtom(node string, idx int) ast.Atom {
	return ast.Atom{Predicate: ConformsPredicate, Args: []ast.BaseTerm{ast.String(node), ast.Number(int64(idx))}}
}

// ViolatesAtom builds the negative verdict atom.
func ViolatesAtom(node string, idx int) ast.Atom {
	return ast.Atom{Predicate: ViolatesPredicate, Args: []ast.BaseTerm{ast.String(node), ast.Number(int64(idx))}}
}

// AddConforms records a proved pair. It satisfies the engine's
// TypingStore seam.
func (s *Store) AddConforms(node string, idx int) bool {
	return s.Add(ConformsAtom(node, idx))
}

// Conforms reports whether a pair was proved by an earlier run.
func (s *Store) Conforms(node string, idx int) bool {
	return s.Contains(ConformsAtom(node, idx))
}

// AddViolates records a refuted pair.
func (s *Store) AddViolates(node string, idx int) bool {
	return s.Add(ViolatesAtom(node, idx))
}

// Violates reports whether a pair was refuted by an earlier run.
func (s *Store) Violates(node string, idx int) bool {
	return s.Contains(ViolatesAtom(node, idx))
}

// FactStore Interface Methods

// Add adds a verdict atom to the store and returns true if it didn't
// exist before. Atoms over any predicate other than conforms/2 or
// violates/2 are rejected.
func (s *Store) Add(atom ast.Atom) bool {
	row, err := atomToRow(atom)
	if err != nil {
		return false
	}

	// INSERT ON CONFLICT DO NOTHING is concurrent-safe and atomic; the
	// PRIMARY KEY on atom_hash handles deduplication.
	res, err := s.addStmt.Exec(row.verdict, row.hash, row.node, row.shape)
	if err != nil {
		log.Printf("typingstore failed to execute add statement: %v", err)
		return false
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false
	}
	return rowsAffected > 0
}

// Contains returns true if the given verdict atom is present.
func (s *Store) Contains(atom ast.Atom) bool {
	row, err := atomToRow(atom)
	if err != nil {
		return false
	}

	var count int
	if err := s.containsStmt.QueryRow(row.hash).Scan(&count); err != nil {
		log.Printf("typingstore failed to execute contains statement: %v", err)
		return false
	}
	return count > 0
}

// Remove removes a verdict atom and returns true if it was present.
func (s *Store) Remove(atom ast.Atom) bool {
	row, err := atomToRow(atom)
	if err != nil {
		return false
	}

	result, err := s.removeStmt.Exec(row.hash)
	if err != nil {
		log.Printf("typingstore failed to execute remove statement: %v", err)
		return false
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Printf("typingstore failed to get rows affected after remove: %v", err)
		return false
	}
	return rowsAffected > 0
}

// GetFacts streams verdict atoms matching the pattern. The pattern's
// predicate selects the verdict; each argument that is a constant
// (rather than a variable) narrows the scan to the matching column.
func (s *Store) GetFacts(pattern ast.Atom, callback func(ast.Atom) error) error {
	verdict, err := verdictOf(pattern.Predicate)
	if err != nil {
		return err
	}

	var queryBuf strings.Builder
	queryBuf.WriteString(s.dialect.getFactsBaseSQL())
	params := []any{verdict}

	for i, arg := range pattern.Args {
		constant, ok := arg.(ast.Constant)
		if !ok {
			continue // variable: wildcard
		}
		switch i {
		case 0:
			node, err := constant.StringValue()
			if err != nil {
				return fmt.Errorf("node pattern must be a string constant: %w", err)
			}
			queryBuf.WriteString(s.dialect.getFactsFragment(0, len(params)+1))
			params = append(params, node)
		case 1:
			shape, err := constant.NumberValue()
			if err != nil {
				return fmt.Errorf("shape pattern must be a number constant: %w", err)
			}
			queryBuf.WriteString(s.dialect.getFactsFragment(1, len(params)+1))
			params = append(params, shape)
		}
	}

	rows, err := s.db.Query(queryBuf.String(), params...)
	if err != nil {
		return fmt.Errorf("failed to query typings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var node string
		var shape int64
		if err := rows.Scan(&node, &shape); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		atom := ast.Atom{Predicate: pattern.Predicate, Args: []ast.BaseTerm{ast.String(node), ast.Number(shape)}}
		if err := callback(atom); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListPredicates lists the verdict predicates present in the store.
func (s *Store) ListPredicates() []ast.PredicateSym {
	rows, err := s.db.Query(`SELECT DISTINCT verdict FROM typings`)
	if err != nil {
		log.Printf("typingstore failed to query for verdicts: %v", err)
		return nil
	}
	defer rows.Close()

	var predicates []ast.PredicateSym
	for rows.Next() {
		var verdict string
		if err := rows.Scan(&verdict); err != nil {
			log.Printf("typingstore failed to scan verdict row: %v", err)
			continue
		}
		switch verdict {
		case ConformsPredicate.Symbol:
			predicates = append(predicates, ConformsPredicate)
		case ViolatesPredicate.Symbol:
			predicates = append(predicates, ViolatesPredicate)
		default:
			log.Printf("typingstore unknown verdict %q in table", verdict)
		}
	}
	if err := rows.Err(); err != nil {
		log.Printf("typingstore error iterating verdict rows: %v", err)
	}
	return predicates
}

// EstimateFactCount returns the number of stored verdicts.
func (s *Store) EstimateFactCount() int {
	const query = "SELECT COUNT(*) FROM typings"
	var count int
	if err := s.db.QueryRow(query).Scan(&count); err != nil {
		log.Printf("typingstore failed to estimate verdict count: %v", err)
		return 0
	}
	return count
}

// Merge merges the contents of another store into this one using
// batched multi-row INSERTs.
func (s *Store) Merge(other factstore.ReadOnlyFactStore) {
	var atoms []ast.Atom
	for _, predicate := range other.ListPredicates() {
		_ = other.GetFacts(ast.NewQuery(predicate), func(atom ast.Atom) error {
			atoms = append(atoms, atom)
			return nil
		})
	}
	if len(atoms) == 0 {
		return
	}
	if err := s.batchInsert(atoms); err != nil {
		log.Printf("typingstore failed to merge %s verdicts: %v", humanize.Comma(int64(len(atoms))), err)
	}
}

// batchInsert inserts verdicts using multi-row INSERT statements, which
// is significantly faster than individual INSERTs for large typings.
func (s *Store) batchInsert(atoms []ast.Atom) error {
	const batchSize = 500

	rows := make([]row, 0, len(atoms))
	for _, atom := range atoms {
		r, err := atomToRow(atom)
		if err != nil {
			// Skip atoms over foreign predicates.
			continue
		}
		rows = append(rows, r)
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if Commit succeeds

	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		batch := rows[i:end]

		query := s.dialect.batchInsertSQL(len(batch))
		params := make([]any, 0, len(batch)*4)
		for _, r := range batch {
			params = append(params, r.verdict, r.hash, r.node, r.shape)
		}
		if _, err := tx.Exec(query, params...); err != nil {
			return fmt.Errorf("failed to execute batch insert: %w", err)
		}
	}
	return tx.Commit()
}

// Close closes the prepared statements and, when the store owns it, the
// database connection.
func (s *Store) Close() error {
	if s.addStmt != nil {
		s.addStmt.Close()
	}
	if s.removeStmt != nil {
		s.removeStmt.Close()
	}
	if s.containsStmt != nil {
		s.containsStmt.Close()
	}
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// initSchemaAndStatements creates the table, index, and prepared
// statements.
func (s *Store) initSchemaAndStatements() error {
	if _, err := s.db.Exec(s.dialect.createTableSQL()); err != nil {
		return fmt.Errorf("failed to create typings table: %w", err)
	}
	if _, err := s.db.Exec(s.dialect.createIndexSQL()); err != nil {
		return fmt.Errorf("failed to create verdict index: %w", err)
	}

	addStmt, err := s.db.Prepare(s.dialect.addSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare add statement: %w", err)
	}
	s.addStmt = addStmt

	removeStmt, err := s.db.Prepare(s.dialect.removeSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare remove statement: %w", err)
	}
	s.removeStmt = removeStmt

	containsStmt, err := s.db.Prepare(s.dialect.containsSQL())
	if err != nil {
		return fmt.Errorf("failed to prepare contains statement: %w", err)
	}
	s.containsStmt = containsStmt

	return nil
}

// Helper Functions

// row is the flattened database form of a verdict atom.
type row struct {
	verdict string
	hash    int64
	node    string
	shape   int64
}

// atomToRow converts a verdict atom to its row form, verifying the
// predicate is conforms/2 or violates/2 and the args are a string
// constant and a number constant.
func atomToRow(atom ast.Atom) (row, error) {
	verdict, err := verdictOf(atom.Predicate)
	if err != nil {
		return row{}, err
	}
	if len(atom.Args) != 2 {
		return row{}, fmt.Errorf("verdict atom must have 2 args, got %d", len(atom.Args))
	}
	nodeConst, ok := atom.Args[0].(ast.Constant)
	if !ok {
		return row{}, fmt.Errorf("node arg is not a constant: %v", atom.Args[0])
	}
	node, err := nodeConst.StringValue()
	if err != nil {
		return row{}, fmt.Errorf("node arg is not a string: %w", err)
	}
	shapeConst, ok := atom.Args[1].(ast.Constant)
	if !ok {
		return row{}, fmt.Errorf("shape arg is not a constant: %v", atom.Args[1])
	}
	shape, err := shapeConst.NumberValue()
	if err != nil {
		return row{}, fmt.Errorf("shape arg is not a number: %w", err)
	}

	h := fnv.New64a()
	h.Write([]byte(verdict))
	h.Write([]byte{0})
	h.Write([]byte(node))
	// Cast to int64 for database/sql compatibility - BIGINT interprets
	// the bit pattern correctly.
	hash := int64(szudzikElegantPair(h.Sum64(), uint64(shape)))

	return row{verdict: verdict, hash: hash, node: node, shape: shape}, nil
}

func verdictOf(p ast.PredicateSym) (string, error) {
	switch p {
	case ConformsPredicate:
		return ConformsPredicate.Symbol, nil
	case ViolatesPredicate:
		return ViolatesPredicate.Symbol, nil
	}
	return "", fmt.Errorf("typingstore only stores %v and %v atoms, got %v", ConformsPredicate, ViolatesPredicate, p)
}

// szudzikElegantPair implements Szudzik's elegant pairing function.
// See http://szudzik.com/ElegantPairing.pdf
func szudzikElegantPair(fst, snd uint64) uint64 {
	if fst >= snd {
		return fst*fst + fst + snd
	}
	return snd*snd + fst
}

// WriteTo writes all verdicts to w in JSON format, streaming without
// intermediate buffering. It implements the io.WriterTo interface.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	return s.writeVerdicts(w)
}

// ReadFrom reads verdicts from a JSON stream and bulk-inserts them.
// It implements the io.ReaderFrom interface.
func (s *Store) ReadFrom(r io.Reader) (int64, error) {
	return s.readVerdicts(r)
}
