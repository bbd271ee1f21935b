package runbook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/runbookhq/core/database"
	"github.com/runbookhq/core/function"
	"github.com/runbookhq/core/model"
)

type executeArgs struct {
	Code           string `json:"code" jsonschema:"the code to execute"`
	Context        string `json:"context,omitempty" jsonschema:"execution context profile: default, finops, devops or security"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty" jsonschema:"per-call timeout override in seconds"`
}

type executeWithFunctionsArgs struct {
	Code           string   `json:"code" jsonschema:"the code to execute"`
	FunctionNames  []string `json:"functionNames" jsonschema:"saved functions to load before the code runs"`
	Context        string   `json:"context,omitempty" jsonschema:"execution context profile: default, finops, devops or security"`
	TimeoutSeconds int      `json:"timeoutSeconds,omitempty" jsonschema:"per-call timeout override in seconds"`
}

type saveFunctionArgs struct {
	Name        string   `json:"name" jsonschema:"unique function name"`
	Code        string   `json:"code" jsonschema:"the function source"`
	Description string   `json:"description,omitempty" jsonschema:"what the function does"`
	Tags        []string `json:"tags,omitempty" jsonschema:"free-form labels for filtering"`
	Category    string   `json:"category,omitempty" jsonschema:"catalog category, defaults to general"`
}

type saveFunctionResult struct {
	OK       bool             `json:"ok"`
	Function *model.Function  `json:"function,omitempty"`
	Error    *model.ExecError `json:"error,omitempty"`
}

type listFunctionsArgs struct {
	Category string   `json:"category,omitempty" jsonschema:"only return functions in this category"`
	Tags     []string `json:"tags,omitempty" jsonschema:"only return functions carrying all of these tags"`
}

type listFunctionsResult struct {
	OK        bool             `json:"ok"`
	Functions []model.Function `json:"functions"`
	Count     int              `json:"count"`
	Limit     int              `json:"limit"`
	Error     *model.ExecError `json:"error,omitempty"`
}

type functionNameArgs struct {
	Name string `json:"name" jsonschema:"the function name"`
}

type getFunctionResult struct {
	OK       bool             `json:"ok"`
	Function *model.Function  `json:"function,omitempty"`
	Error    *model.ExecError `json:"error,omitempty"`
}

type deleteFunctionResult struct {
	OK    bool             `json:"ok"`
	Error *model.ExecError `json:"error,omitempty"`
}

type searchFunctionsArgs struct {
	Query    string `json:"query" jsonschema:"keywords matched against name, description and tags"`
	Category string `json:"category,omitempty" jsonschema:"restrict matches to this category"`
}

func (s *Server) registerTools() {
	if s.Config.EnableExecution {
		mcp.AddTool(s.mcpsvr, &mcp.Tool{
			Name:        "execute_code",
			Description: "Execute code inside a sandboxed environment with helper bindings for the selected context",
		}, s.executeCode)

		mcp.AddTool(s.mcpsvr, &mcp.Tool{
			Name:        "execute_with_functions",
			Description: "Execute code with saved functions preloaded into the sandbox",
		}, s.executeWithFunctions)
	}

	if s.Config.EnableFunctionStore {
		mcp.AddTool(s.mcpsvr, &mcp.Tool{
			Name:        "save_function",
			Description: "Validate and store a reusable function in the catalog",
		}, s.saveFunction)

		mcp.AddTool(s.mcpsvr, &mcp.Tool{
			Name:        "list_functions",
			Description: "List stored functions, optionally filtered by category and tags",
		}, s.listFunctions)

		mcp.AddTool(s.mcpsvr, &mcp.Tool{
			Name:        "get_function",
			Description: "Fetch one stored function by name, including its source and usage statistics",
		}, s.getFunction)

		mcp.AddTool(s.mcpsvr, &mcp.Tool{
			Name:        "delete_function",
			Description: "Remove a stored function from the catalog",
		}, s.deleteFunction)

		mcp.AddTool(s.mcpsvr, &mcp.Tool{
			Name:        "search_functions",
			Description: "Full-text search over stored function names, descriptions and tags",
		}, s.searchFunctions)
	}
}

func (s *Server) executeCode(ctx context.Context, req *mcp.CallToolRequest, args executeArgs) (*mcp.CallToolResult, model.ExecutionResult, error) {
	res := s.Engine.Execute(model.ExecutionRequest{
		Code:           args.Code,
		Context:        args.Context,
		TimeoutSeconds: args.TimeoutSeconds,
	})

	return nil, res, nil
}

func (s *Server) executeWithFunctions(ctx context.Context, req *mcp.CallToolRequest, args executeWithFunctionsArgs) (*mcp.CallToolResult, model.ExecutionResult, error) {
	res := s.Engine.Execute(model.ExecutionRequest{
		Code:           args.Code,
		Context:        args.Context,
		FunctionNames:  args.FunctionNames,
		TimeoutSeconds: args.TimeoutSeconds,
	})

	return nil, res, nil
}

func (s *Server) saveFunction(ctx context.Context, req *mcp.CallToolRequest, args saveFunctionArgs) (*mcp.CallToolResult, saveFunctionResult, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return nil, saveFunctionResult{Error: &model.ExecError{
			Kind:    model.ErrorKindValidation,
			Message: "a function needs a name",
		}}, nil
	}

	if execErr := function.Validate(args.Code); execErr != nil {
		return nil, saveFunctionResult{Error: execErr}, nil
	}

	fn := model.Function{
		Name:        name,
		Code:        args.Code,
		Description: args.Description,
		Tags:        args.Tags,
		Category:    args.Category,
	}
	if fn.Category == "" {
		fn.Category = model.CategoryGeneral
	}

	saved, err := s.DB.SaveFunction(fn)
	if err != nil {
		return nil, saveFunctionResult{Error: storageError(err)}, nil
	}

	if err := s.Search.Index(saved); err != nil {
		s.Log.Warn().Err(err).Msgf("could not index function %s", saved.Name)
	}

	return nil, saveFunctionResult{OK: true, Function: &saved}, nil
}

func (s *Server) listFunctions(ctx context.Context, req *mcp.CallToolRequest, args listFunctionsArgs) (*mcp.CallToolResult, listFunctionsResult, error) {
	fns, err := s.DB.ListFunctions(args.Category, args.Tags)
	if err != nil {
		return nil, listFunctionsResult{Error: storageError(err)}, nil
	}

	count, err := s.DB.CountFunctions()
	if err != nil {
		return nil, listFunctionsResult{Error: storageError(err)}, nil
	}

	if fns == nil {
		fns = []model.Function{}
	}

	return nil, listFunctionsResult{
		OK:        true,
		Functions: fns,
		Count:     count,
		Limit:     s.Config.MaxFunctions,
	}, nil
}

func (s *Server) getFunction(ctx context.Context, req *mcp.CallToolRequest, args functionNameArgs) (*mcp.CallToolResult, getFunctionResult, error) {
	fn, err := s.DB.GetFunction(args.Name)
	if err != nil {
		return nil, getFunctionResult{Error: storageError(err)}, nil
	}

	return nil, getFunctionResult{OK: true, Function: &fn}, nil
}

func (s *Server) deleteFunction(ctx context.Context, req *mcp.CallToolRequest, args functionNameArgs) (*mcp.CallToolResult, deleteFunctionResult, error) {
	if err := s.DB.DeleteFunction(args.Name); err != nil {
		return nil, deleteFunctionResult{Error: storageError(err)}, nil
	}

	if err := s.Search.Delete(args.Name); err != nil {
		s.Log.Warn().Err(err).Msgf("could not remove function %s from the index", args.Name)
	}

	return nil, deleteFunctionResult{OK: true}, nil
}

func (s *Server) searchFunctions(ctx context.Context, req *mcp.CallToolRequest, args searchFunctionsArgs) (*mcp.CallToolResult, listFunctionsResult, error) {
	names, err := s.Search.Find(args.Query, args.Category)
	if err != nil {
		return nil, listFunctionsResult{Error: storageError(err)}, nil
	}

	fns := []model.Function{}
	for _, name := range names {
		fn, err := s.DB.GetFunction(name)
		if err != nil {
			// the index can briefly lag behind the catalog
			if errors.Is(err, database.ErrFunctionNotFound) {
				continue
			}
			return nil, listFunctionsResult{Error: storageError(err)}, nil
		}

		fns = append(fns, fn)
	}

	count, err := s.DB.CountFunctions()
	if err != nil {
		return nil, listFunctionsResult{Error: storageError(err)}, nil
	}

	return nil, listFunctionsResult{
		OK:        true,
		Functions: fns,
		Count:     count,
		Limit:     s.Config.MaxFunctions,
	}, nil
}

func storageError(err error) *model.ExecError {
	switch {
	case errors.Is(err, database.ErrQuotaExceeded):
		return &model.ExecError{
			Kind:    model.ErrorKindQuota,
			Message: err.Error(),
		}
	case errors.Is(err, database.ErrFunctionNotFound):
		return &model.ExecError{
			Kind:    model.ErrorKindNotFound,
			Message: err.Error(),
		}
	default:
		return &model.ExecError{
			Kind:    model.ErrorKindStorage,
			Message: fmt.Sprintf("storage failure: %v", err),
		}
	}
}
