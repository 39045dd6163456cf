package box

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// rootFolderID is the provider-assigned id of the account's root container.
const rootFolderID = "0"

// itemTypeFolder is the entry type Box reports for folders.
const itemTypeFolder = "folder"

// sharedLinkAccessCollaborators scopes a shared link so only collaborators
// on the folder can resolve it.
const sharedLinkAccessCollaborators = "collaborators"

// itemEntry mirrors one entry of a folder items listing.
type itemEntry struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// itemsResponse wraps the entries array from GET /folders/{id}/items.
type itemsResponse struct {
	TotalCount int         `json:"total_count"`
	Entries    []itemEntry `json:"entries"`
}

// FindFolder looks up a folder by name in the root container. The listing
// is a single page bounded by pageSize, scanned client-side for an entry
// whose name matches exactly and whose type is "folder". A missing folder
// is ErrFolderNotFound, never an empty id — downstream grants and link
// configuration cannot proceed without a valid id.
func (c *Client) FindFolder(ctx context.Context, accessToken, name string, pageSize int) (string, error) {
	c.logger.Info("looking up folder", slog.String("name", name))

	path := fmt.Sprintf("/folders/%s/items?limit=%d", rootFolderID, pageSize)

	resp, err := c.do(ctx, http.MethodGet, path, accessToken, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var ir itemsResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return "", fmt.Errorf("box: decoding items response: %w", err)
	}

	for i := range ir.Entries {
		if ir.Entries[i].Type == itemTypeFolder && ir.Entries[i].Name == name {
			c.logger.Debug("folder found",
				slog.String("name", name),
				slog.String("id", ir.Entries[i].ID),
			)

			return ir.Entries[i].ID, nil
		}
	}

	return "", fmt.Errorf("%w: %q not in root listing (%d entries)", ErrFolderNotFound, name, len(ir.Entries))
}

// sharedLinkRequest is the PUT /folders/{id} body that configures link
// visibility.
type sharedLinkRequest struct {
	SharedLink sharedLinkSettings `json:"shared_link"`
}

type sharedLinkSettings struct {
	Access string `json:"access"`
}

// sharedLinkResponse mirrors the subset of the folder resource we read back.
type sharedLinkResponse struct {
	SharedLink struct {
		URL    string `json:"url"`
		Access string `json:"access"`
	} `json:"shared_link"`
}

// SetSharedLink sets the folder's shared link to collaborators-only access
// and returns the resulting URL.
func (c *Client) SetSharedLink(ctx context.Context, accessToken, folderID string) (string, error) {
	c.logger.Info("configuring shared link", slog.String("folder_id", folderID))

	body, err := json.Marshal(sharedLinkRequest{
		SharedLink: sharedLinkSettings{Access: sharedLinkAccessCollaborators},
	})
	if err != nil {
		return "", fmt.Errorf("box: encoding shared link request: %w", err)
	}

	path := "/folders/" + folderID

	resp, err := c.do(ctx, http.MethodPut, path, accessToken, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var sr sharedLinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", fmt.Errorf("box: decoding shared link response: %w", err)
	}

	if sr.SharedLink.URL == "" {
		return "", fmt.Errorf("box: folder %s response carries no shared link URL", folderID)
	}

	c.logger.Info("shared link configured",
		slog.String("folder_id", folderID),
		slog.String("access", sr.SharedLink.Access),
	)

	return sr.SharedLink.URL, nil
}
