package workflow

// ProjectStatus is the lifecycle position of a project.
type ProjectStatus string

const (
	ProjectPlanning          ProjectStatus = "planning"
	ProjectInProgress        ProjectStatus = "in_progress"
	ProjectOnHold            ProjectStatus = "on_hold"
	ProjectReview            ProjectStatus = "review"
	ProjectCompleted         ProjectStatus = "completed"
	ProjectDeliveryScheduled ProjectStatus = "delivery_scheduled"
	ProjectDelivered         ProjectStatus = "delivered"
	ProjectCancelled         ProjectStatus = "cancelled"
)

// ProjectAction moves a project between statuses.
type ProjectAction string

const (
	ProjectStart            ProjectAction = "start"
	ProjectHold             ProjectAction = "hold"
	ProjectResume           ProjectAction = "resume"
	ProjectSendToReview     ProjectAction = "review"
	ProjectComplete         ProjectAction = "complete"
	ProjectScheduleDelivery ProjectAction = "schedule_delivery"
	ProjectDeliver          ProjectAction = "deliver"
	ProjectCancel           ProjectAction = "cancel"
)

// NewProjectMachine builds the project lifecycle. Review sends work back to
// in_progress through resume. Completion requires the work to be in progress
// or in review.
func NewProjectMachine() *Machine[ProjectStatus, ProjectAction] {
	m := newMachine[ProjectStatus, ProjectAction]("project", ProjectDelivered, ProjectCancelled)

	m.add(ProjectStart, ProjectInProgress, ProjectPlanning)
	m.add(ProjectHold, ProjectOnHold, ProjectPlanning, ProjectInProgress, ProjectReview)
	m.add(ProjectResume, ProjectInProgress, ProjectOnHold, ProjectReview)
	m.add(ProjectSendToReview, ProjectReview, ProjectInProgress)
	m.add(ProjectComplete, ProjectCompleted, ProjectInProgress, ProjectReview)
	m.add(ProjectScheduleDelivery, ProjectDeliveryScheduled, ProjectCompleted)
	m.add(ProjectDeliver, ProjectDelivered, ProjectDeliveryScheduled)
	m.add(ProjectCancel, ProjectCancelled, ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectReview)
	return m
}

// Projects is the shared project machine.
var Projects = NewProjectMachine()
