package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"caseflow/internal/core/domain"
	"caseflow/internal/infrastructure/resilience"
)

// Client talks to the administrative CRUD backend that owns the authoritative
// Application record. Mutations return success/failure only; callers re-read
// through GetApplication.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

func (c *Client) execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, fn, classifyBackendError)
	} else {
		err = fn(ctx)
	}
	return wrapKind(operation, err)
}

func (c *Client) GetApplication(ctx context.Context, id string) (*domain.Application, error) {
	var app domain.Application
	err := c.execute(ctx, "backend.get_application", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/applications/"+url.PathEscape(id), nil, &app, "get application")
	})
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *Client) AdvanceWorkflow(ctx context.Context, applicationID string, req domain.AdvanceRequest) error {
	return c.execute(ctx, "backend.advance_workflow", func(ctx context.Context) error {
		path := fmt.Sprintf("/applications/%s/workflow/advance", url.PathEscape(applicationID))
		return c.doJSON(ctx, http.MethodPost, path, req, nil, "advance workflow")
	})
}

func (c *Client) RollbackWorkflow(ctx context.Context, applicationID, workflowID string) error {
	return c.execute(ctx, "backend.rollback_workflow", func(ctx context.Context) error {
		path := fmt.Sprintf("/applications/%s/workflow/%s/rollback", url.PathEscape(applicationID), url.PathEscape(workflowID))
		return c.doJSON(ctx, http.MethodPost, path, nil, nil, "rollback workflow")
	})
}

func (c *Client) UpdateWorkflowStatus(ctx context.Context, applicationID, workflowID string, status domain.WorkflowStatus) error {
	return c.execute(ctx, "backend.update_workflow_status", func(ctx context.Context) error {
		path := fmt.Sprintf("/applications/%s/workflow/%s/status", url.PathEscape(applicationID), url.PathEscape(workflowID))
		payload := map[string]string{"status": string(status)}
		return c.doJSON(ctx, http.MethodPatch, path, payload, nil, "update workflow status")
	})
}

func (c *Client) UpdateWorkflowDueDate(ctx context.Context, applicationID, workflowID string, due domain.Date) error {
	return c.execute(ctx, "backend.update_workflow_due_date", func(ctx context.Context) error {
		path := fmt.Sprintf("/applications/%s/workflow/%s/due-date", url.PathEscape(applicationID), url.PathEscape(workflowID))
		payload := map[string]domain.Date{"dueDate": due}
		return c.doJSON(ctx, http.MethodPatch, path, payload, nil, "update workflow due date")
	})
}

func (c *Client) ForceClose(ctx context.Context, applicationID string) error {
	return c.execute(ctx, "backend.force_close", func(ctx context.Context) error {
		path := fmt.Sprintf("/applications/%s/force-close", url.PathEscape(applicationID))
		return c.doJSON(ctx, http.MethodPost, path, nil, nil, "force close")
	})
}

func (c *Client) Reopen(ctx context.Context, applicationID string) error {
	return c.execute(ctx, "backend.reopen", func(ctx context.Context) error {
		path := fmt.Sprintf("/applications/%s/reopen", url.PathEscape(applicationID))
		return c.doJSON(ctx, http.MethodPost, path, nil, nil, "reopen")
	})
}

func (c *Client) UpdateApplicationDates(ctx context.Context, applicationID string, docDate, dueDate domain.Date) error {
	return c.execute(ctx, "backend.update_application_dates", func(ctx context.Context) error {
		path := fmt.Sprintf("/applications/%s/dates", url.PathEscape(applicationID))
		payload := map[string]domain.Date{"docDate": docDate, "dueDate": dueDate}
		return c.doJSON(ctx, http.MethodPatch, path, payload, nil, "update application dates")
	})
}

func (c *Client) PatchDocument(ctx context.Context, documentID string, patch domain.DocumentPatch) error {
	return c.execute(ctx, "backend.patch_document", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPatch, "/documents/"+url.PathEscape(documentID), patch, nil, "patch document")
	})
}

func (c *Client) ProductDocuments(ctx context.Context, productID string) (*domain.ProductChecklist, error) {
	var checklist domain.ProductChecklist
	err := c.execute(ctx, "backend.product_documents", func(ctx context.Context) error {
		path := fmt.Sprintf("/products/%s/documents", url.PathEscape(productID))
		return c.doJSON(ctx, http.MethodGet, path, nil, &checklist, "product documents")
	})
	if err != nil {
		return nil, err
	}
	return &checklist, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	var customer domain.Customer
	err := c.execute(ctx, "backend.get_customer", func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "/customers/"+url.PathEscape(id), nil, &customer, "get customer")
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}
