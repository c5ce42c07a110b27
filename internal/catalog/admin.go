package catalog

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nikolayk812/repairshop-cart/internal/domain"
)

// AdminList fetches every record of an admin resource, e.g.
// AdminList[TeamMember](ctx, c, ResourceTeam).
func AdminList[T any](ctx context.Context, c *Client, res Resource) ([]T, error) {
	var list []T
	if err := c.getJSON(ctx, resourcePath(res, ""), true, &list); err != nil {
		return nil, fmt.Errorf("c.getJSON: %w", err)
	}
	return list, nil
}

func AdminGet[T any](ctx context.Context, c *Client, res Resource, id domain.ItemID) (T, error) {
	var out T
	if id == "" {
		return out, fmt.Errorf("id is empty")
	}

	if err := c.getJSON(ctx, resourcePath(res, id), true, &out); err != nil {
		return out, fmt.Errorf("c.getJSON: %w", err)
	}
	return out, nil
}

func (c *Client) AdminCreate(ctx context.Context, res Resource, payload any) (Result, error) {
	return c.submit(ctx, http.MethodPost, resourcePath(res, ""), true, payload)
}

// AdminUpdate replaces fields of a record; partial payloads such as
// {"status":"approved"} are accepted by the API.
func (c *Client) AdminUpdate(ctx context.Context, res Resource, id domain.ItemID, payload any) (Result, error) {
	if id == "" {
		return Result{}, fmt.Errorf("id is empty")
	}
	return c.submit(ctx, http.MethodPut, resourcePath(res, id), true, payload)
}

func (c *Client) AdminDelete(ctx context.Context, res Resource, id domain.ItemID) (Result, error) {
	if id == "" {
		return Result{}, fmt.Errorf("id is empty")
	}
	return c.submit(ctx, http.MethodDelete, resourcePath(res, id), true, nil)
}
