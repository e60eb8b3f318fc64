// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wsqlite

import "context"

type tx struct {
	c *Conn
}

func (t *tx) Commit() error {
	t.c.tx = false
	_, err := t.c.ExecContext(context.Background(), "COMMIT", nil)
	return err
}

func (t *tx) Rollback() error {
	t.c.tx = false
	_, err := t.c.ExecContext(context.Background(), "ROLLBACK", nil)
	return err
}
