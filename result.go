// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wsqlite

type result struct {
	changes      int64
	lastInsertID int64
}

func (r *result) LastInsertId() (int64, error) {
	return r.lastInsertID, nil
}

func (r *result) RowsAffected() (int64, error) {
	return r.changes, nil
}
