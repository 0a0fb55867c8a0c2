package interp

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/wildfunctions/calcblocks/pkg/block"
)

// Serve answers one request read from r as JSON by running it through in
// and writing the payload to w. This is the other end of Process.
func Serve(ctx context.Context, r io.Reader, w io.Writer, in block.Interpreter) error {
	var req block.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return errors.Wrap(err, "decode request")
	}
	payload, err := in.Execute(ctx, req)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, payload)
	return errors.Wrap(err, "write payload")
}
