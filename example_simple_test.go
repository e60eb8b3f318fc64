// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wsqlite_test

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/wsqlite/go-wsqlite"
)

func Example_simpleConnection() {
	// Connect to an in-memory database.
	db, err := sql.Open("wsqlite", ":memory:")
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	defer db.Close()

	// An in-memory database exists per connection, so pin the pool to one.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE users (name TEXT, age INTEGER)`)
	if err != nil {
		log.Fatalf("could not create table: %s", err)
	}

	_, err = db.Exec(`INSERT INTO users (name, age) VALUES (?, ?)`, "Marc", 30)
	if err != nil {
		log.Fatalf("could not insert row: %s", err)
	}

	var name string
	var age int
	row := db.QueryRow(`SELECT name, age FROM users`)
	if err := row.Scan(&name, &age); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Println("no rows")
		}
		log.Fatalf("could not retrieve row: %s", err)
	}

	fmt.Printf("%s is %d years old\n", name, age)
	// Output: Marc is 30 years old
}
