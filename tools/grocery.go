package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/invopop/jsonschema"
	"github.com/m4xw311/grocer/errors"
	"github.com/m4xw311/grocer/grocery"
)

// RetrieveStatus accompanies every retrieve_list result. Additions are
// applied asynchronously, so a snapshot can lag behind what was requested.
const RetrieveStatus = "Some items may still be processing..."

var (
	addToListSchema    = GenerateSchema[AddToListArgs]()
	retrieveListSchema = GenerateSchema[RetrieveListArgs]()
)

// AddToListTool implements add_to_list.
//
// The contract is best-effort: Execute validates the arguments, schedules the
// store write on the queue and acknowledges straight away. The acknowledgment
// does not mean the item is on the list yet, and if the write later fails the
// failure is only logged. Nothing reports it back to the model or the user.
type AddToListTool struct {
	store  *grocery.Store
	queue  *WriteQueue
	logger *slog.Logger
}

func (t *AddToListTool) Name() string { return KindAddToList.String() }
func (t *AddToListTool) Description() string {
	return "Add an item to the grocery list. Decide whether the item is a fruit or a vegetable " +
		"and pass the matching category. The item is added in the background."
}
func (t *AddToListTool) Schema() *jsonschema.Schema { return addToListSchema }

func (t *AddToListTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	call, err := Decode(t.Name(), args)
	if err != nil {
		return "", err
	}
	a := *call.Add

	t.queue.Enqueue(fmt.Sprintf("add %s/%s", a.Category, a.Item), func() error {
		return t.store.Add(a.Category, a.Item)
	})
	t.logger.Debug("add scheduled",
		slog.String("category", string(a.Category)),
		slog.String("item", a.Item))

	return fmt.Sprintf("Started adding %s to %s list...", a.Item, a.Category), nil
}

// RetrieveListTool implements retrieve_list. It reads the store synchronously.
type RetrieveListTool struct {
	store *grocery.Store
}

// RetrieveListResult is the JSON payload returned to the model.
type RetrieveListResult struct {
	Fruits     []string `json:"fruits"`
	Vegetables []string `json:"vegetables"`
	Status     string   `json:"status"`
}

func (t *RetrieveListTool) Name() string { return KindRetrieveList.String() }
func (t *RetrieveListTool) Description() string {
	return "Retrieve all items from the grocery list, grouped into fruits and vegetables. " +
		"Items added moments ago may not show up yet."
}
func (t *RetrieveListTool) Schema() *jsonschema.Schema { return retrieveListSchema }

func (t *RetrieveListTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	if _, err := Decode(t.Name(), args); err != nil {
		return "", err
	}
	snap := t.store.Retrieve()
	out, err := json.Marshal(RetrieveListResult{
		Fruits:     snap.Fruits,
		Vegetables: snap.Vegetables,
		Status:     RetrieveStatus,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to encode grocery list")
	}
	return string(out), nil
}
