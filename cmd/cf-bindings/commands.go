package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/sap/cloudfoundry-client-go/clients/jobs"
	"github.com/sap/cloudfoundry-client-go/clients/servicebindings"
	"github.com/sap/cloudfoundry-client-go/cloudfoundry"
	"github.com/sap/cloudfoundry-client-go/internal"
)

const (
	errInvalidGUID       = "invalid guid %q"
	errReadParameters    = "cannot read parameters file %s"
	errParseMetadata     = "cannot parse %s"
	errGetServiceBinding = "cannot get service credential binding %s"
)

type metadataFlags struct {
	labels      []string
	annotations []string
}

func (m metadataFlags) metadata() (*cloudfoundry.Metadata, error) {
	labels, err := internal.ParseKeyValues(m.labels)
	if err != nil {
		return nil, errors.Wrapf(err, errParseMetadata, "labels")
	}
	annotations, err := internal.ParseKeyValues(m.annotations)
	if err != nil {
		return nil, errors.Wrapf(err, errParseMetadata, "annotations")
	}
	if labels == nil && annotations == nil {
		return nil, nil
	}
	return &cloudfoundry.Metadata{Labels: labels, Annotations: annotations}, nil
}

type waitFlags struct {
	wait         bool
	pollInterval time.Duration
}

// createResult is printed by create. Binding is set for synchronous creates, Job once waited for.
type createResult struct {
	ServiceBinding *servicebindings.ServiceBindingResource `json:"service_binding,omitempty"`
	JobID          string                                  `json:"job_id,omitempty"`
	Job            *jobs.Job                               `json:"job,omitempty"`
}

type deleteResult struct {
	JobID string    `json:"job_id,omitempty"`
	Job   *jobs.Job `json:"job,omitempty"`
}

func (c *cli) registerCommands() {
	c.registerCreate()
	c.registerDelete()
	c.registerGet()
	c.registerDetails()
	c.registerParameters()
	c.registerList()
	c.registerUpdate()
	c.registerWaitJob()
}

func addWaitFlags(cmd *kingpin.CmdClause, w *waitFlags) {
	cmd.Flag("wait", "Wait until the job performing the operation finished.").BoolVar(&w.wait)
	cmd.Flag("poll-interval", "Interval between job lookups.").Default(jobs.DefaultPollInterval.String()).DurationVar(&w.pollInterval)
}

func (c *cli) registerCreate() {
	var (
		bindingType     string
		name            string
		serviceInstance string
		app             string
		parameterFiles  []string
		meta            metadataFlags
		wait            waitFlags
	)
	cmd := c.app.Command("create", "Create a service credential binding.")
	cmd.Flag("type", "Binding type.").Required().EnumVar(&bindingType, string(servicebindings.ServiceBindingTypeApp), string(servicebindings.ServiceBindingTypeKey))
	cmd.Flag("name", "Binding name, required for keys.").StringVar(&name)
	cmd.Flag("service-instance", "Guid of the service instance.").Required().StringVar(&serviceInstance)
	cmd.Flag("app", "Guid of the app, required for app bindings.").StringVar(&app)
	cmd.Flag("parameters", "JSON or YAML file with parameters passed to the broker. Repeatable, later files override earlier keys.").ExistingFilesVar(&parameterFiles)
	cmd.Flag("label", "Label key=value. Repeatable.").StringsVar(&meta.labels)
	cmd.Flag("annotation", "Annotation key=value. Repeatable.").StringsVar(&meta.annotations)
	addWaitFlags(cmd, &wait)

	c.handlers[cmd.FullCommand()] = func(ctx context.Context, cl *clients) error {
		if err := validateGUIDs(serviceInstance); err != nil {
			return err
		}
		parameters, err := readParameters(parameterFiles)
		if err != nil {
			return err
		}
		metadata, err := meta.metadata()
		if err != nil {
			return err
		}
		request := servicebindings.CreateServiceBindingRequest{
			Type: servicebindings.ServiceBindingType(bindingType),
			Relationships: servicebindings.ServiceBindingRelationships{
				ServiceInstance: cloudfoundry.ToOne(serviceInstance),
			},
			Metadata: metadata,
		}
		if name != "" {
			request.Name = internal.Ptr(name)
		}
		if app != "" {
			if err := validateGUIDs(app); err != nil {
				return err
			}
			request.Relationships.App = internal.Ptr(cloudfoundry.ToOne(app))
		}
		if len(parameters) > 0 {
			request.Parameters = parameters
		}

		resp, err := cl.bindings.Create(ctx, request)
		if err != nil {
			return err
		}
		cl.log.Info("Created service credential binding", "jobID", resp.JobID)

		result := createResult{ServiceBinding: resp.ServiceBinding, JobID: resp.JobID}
		if wait.wait {
			job, err := cl.jobs.WaitForCompletion(ctx, resp.JobID, wait.pollInterval)
			if err != nil {
				return err
			}
			result.Job = job
		}
		return c.print(result)
	}
}

func (c *cli) registerDelete() {
	var (
		id   string
		wait waitFlags
	)
	cmd := c.app.Command("delete", "Delete a service credential binding.")
	cmd.Arg("guid", "Guid of the binding.").Required().StringVar(&id)
	addWaitFlags(cmd, &wait)

	c.handlers[cmd.FullCommand()] = func(ctx context.Context, cl *clients) error {
		if err := validateGUIDs(id); err != nil {
			return err
		}
		jobID, err := cl.bindings.Delete(ctx, servicebindings.DeleteServiceBindingRequest{ServiceBindingID: id})
		if err != nil {
			return err
		}
		cl.log.Info("Deleted service credential binding", "guid", id, "jobID", jobID)

		result := deleteResult{JobID: jobID}
		if wait.wait {
			if result.Job, err = cl.jobs.WaitForCompletion(ctx, jobID, wait.pollInterval); err != nil {
				return err
			}
		}
		return c.print(result)
	}
}

func (c *cli) registerGet() {
	var ids []string
	cmd := c.app.Command("get", "Show one or more service credential bindings.")
	cmd.Arg("guids", "Guids of the bindings.").Required().StringsVar(&ids)

	c.handlers[cmd.FullCommand()] = func(ctx context.Context, cl *clients) error {
		if err := validateGUIDs(ids...); err != nil {
			return err
		}
		bindings, err := getAll(ctx, cl.bindings, ids)
		if err != nil {
			return err
		}
		if len(bindings) == 1 {
			return c.print(bindings[0])
		}
		return c.print(bindings)
	}
}

// getAll reads the bindings concurrently, the result keeps the order of ids.
func getAll(ctx context.Context, client servicebindings.ServiceBindingsV3, ids []string) ([]*servicebindings.GetServiceBindingResponse, error) {
	bindings := make([]*servicebindings.GetServiceBindingResponse, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			binding, err := client.Get(gctx, servicebindings.GetServiceBindingRequest{ServiceBindingID: id})
			if err != nil {
				return errors.Wrapf(err, errGetServiceBinding, id)
			}
			bindings[i] = binding
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bindings, nil
}

func (c *cli) registerDetails() {
	var id string
	cmd := c.app.Command("details", "Show the credentials of a service credential binding.")
	cmd.Arg("guid", "Guid of the binding.").Required().StringVar(&id)

	c.handlers[cmd.FullCommand()] = func(ctx context.Context, cl *clients) error {
		if err := validateGUIDs(id); err != nil {
			return err
		}
		details, err := cl.bindings.GetDetails(ctx, servicebindings.GetServiceBindingDetailsRequest{ServiceBindingID: id})
		if err != nil {
			return err
		}
		return c.print(details)
	}
}

func (c *cli) registerParameters() {
	var id string
	cmd := c.app.Command("parameters", "Show the parameters of a service credential binding.")
	cmd.Arg("guid", "Guid of the binding.").Required().StringVar(&id)

	c.handlers[cmd.FullCommand()] = func(ctx context.Context, cl *clients) error {
		if err := validateGUIDs(id); err != nil {
			return err
		}
		parameters, err := cl.bindings.GetParameters(ctx, servicebindings.GetServiceBindingParametersRequest{ServiceBindingID: id})
		if err != nil {
			return err
		}
		return c.print(parameters.Parameters)
	}
}

func (c *cli) registerList() {
	var (
		request       servicebindings.ListServiceBindingsRequest
		bindingType   string
		page, perPage int
	)
	cmd := c.app.Command("list", "List service credential bindings, one page at a time.")
	cmd.Flag("guid", "Filter by binding guid. Repeatable.").StringsVar(&request.GUIDs)
	cmd.Flag("name", "Filter by binding name. Repeatable.").StringsVar(&request.Names)
	cmd.Flag("type", "Filter by binding type.").EnumVar(&bindingType, string(servicebindings.ServiceBindingTypeApp), string(servicebindings.ServiceBindingTypeKey))
	cmd.Flag("app", "Filter by app guid. Repeatable.").StringsVar(&request.AppGUIDs)
	cmd.Flag("app-name", "Filter by app name. Repeatable.").StringsVar(&request.AppNames)
	cmd.Flag("service-instance", "Filter by service instance guid. Repeatable.").StringsVar(&request.ServiceInstanceGUIDs)
	cmd.Flag("service-instance-name", "Filter by service instance name. Repeatable.").StringsVar(&request.ServiceInstanceNames)
	cmd.Flag("service-plan", "Filter by service plan guid. Repeatable.").StringsVar(&request.ServicePlanGUIDs)
	cmd.Flag("service-offering", "Filter by service offering guid. Repeatable.").StringsVar(&request.ServiceOfferingGUIDs)
	cmd.Flag("label-selector", "Label selector, e.g. env=prod,!legacy.").StringVar(&request.LabelSelector)
	cmd.Flag("include", "Include related resources.").EnumsVar(&request.Include, servicebindings.IncludeApp, servicebindings.IncludeServiceInstance)
	cmd.Flag("order-by", "Order, e.g. -created_at.").StringVar(&request.OrderBy)
	cmd.Flag("page", "Page to show.").IntVar(&page)
	cmd.Flag("per-page", "Results per page.").IntVar(&perPage)

	c.handlers[cmd.FullCommand()] = func(ctx context.Context, cl *clients) error {
		request.Type = servicebindings.ServiceBindingType(bindingType)
		if page > 0 {
			request.Page = internal.Ptr(page)
		}
		if perPage > 0 {
			request.PerPage = internal.Ptr(perPage)
		}
		resp, err := cl.bindings.List(ctx, request)
		if err != nil {
			return err
		}
		return c.print(resp)
	}
}

func (c *cli) registerUpdate() {
	var (
		id   string
		meta metadataFlags
	)
	cmd := c.app.Command("update", "Update labels and annotations of a service credential binding. An empty value removes the key.")
	cmd.Arg("guid", "Guid of the binding.").Required().StringVar(&id)
	cmd.Flag("label", "Label key=value. Repeatable.").StringsVar(&meta.labels)
	cmd.Flag("annotation", "Annotation key=value. Repeatable.").StringsVar(&meta.annotations)

	c.handlers[cmd.FullCommand()] = func(ctx context.Context, cl *clients) error {
		if err := validateGUIDs(id); err != nil {
			return err
		}
		metadata, err := meta.metadata()
		if err != nil {
			return err
		}
		binding, err := cl.bindings.Update(ctx, servicebindings.UpdateServiceBindingRequest{ServiceBindingID: id, Metadata: metadata})
		if err != nil {
			return err
		}
		return c.print(binding)
	}
}

func (c *cli) registerWaitJob() {
	var (
		id   string
		wait waitFlags
	)
	cmd := c.app.Command("wait-job", "Wait for a job to finish.")
	cmd.Arg("guid", "Guid of the job.").Required().StringVar(&id)
	cmd.Flag("poll-interval", "Interval between job lookups.").Default(jobs.DefaultPollInterval.String()).DurationVar(&wait.pollInterval)

	c.handlers[cmd.FullCommand()] = func(ctx context.Context, cl *clients) error {
		if err := validateGUIDs(id); err != nil {
			return err
		}
		job, err := cl.jobs.WaitForCompletion(ctx, id, wait.pollInterval)
		if job != nil {
			if printErr := c.print(job); printErr != nil {
				return printErr
			}
		}
		return err
	}
}

func validateGUIDs(ids ...string) error {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return errors.Wrapf(err, errInvalidGUID, id)
		}
	}
	return nil
}

func readParameters(files []string) (map[string]any, error) {
	documents := make([]map[string]any, 0, len(files))
	for _, file := range files {
		raw, err := os.ReadFile(filepath.Clean(file))
		if err != nil {
			return nil, errors.Wrapf(err, errReadParameters, file)
		}
		doc, err := internal.UnmarshalRawParameters(raw)
		if err != nil {
			return nil, errors.Wrapf(err, errReadParameters, file)
		}
		documents = append(documents, doc)
	}
	return internal.MergeParameters(documents...)
}
