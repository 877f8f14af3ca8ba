package services

import (
	"fmt"

	"billing-bridge/internal/database"
	"billing-bridge/internal/models"
	"billing-bridge/pkg/logging"
)

// ProjectService provides project management operations
type ProjectService struct{}

// NewProjectService creates a new project service
func NewProjectService() *ProjectService {
	return &ProjectService{}
}

// ValidateProject validates project ID and API key against the database
func (ps *ProjectService) ValidateProject(projectID, apiKey string) bool {
	var project models.Project
	err := database.GetDB().
		Where("project_id = ? AND api_key = ? AND is_active = ?", projectID, apiKey, true).
		First(&project).Error
	if err != nil {
		logging.Debugf("Project validation failed - project: %s: %v", projectID, err)
		return false
	}
	return true
}

// GetProject gets a project by project ID
func (ps *ProjectService) GetProject(projectID string) (*models.Project, error) {
	var project models.Project
	err := database.GetDB().Where("project_id = ?", projectID).First(&project).Error
	if err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}
	return &project, nil
}

// GetProjectByPackageName gets a project by its Android package name
func (ps *ProjectService) GetProjectByPackageName(packageName string) (*models.Project, error) {
	var project models.Project
	err := database.GetDB().Where("package_name = ?", packageName).First(&project).Error
	if err != nil {
		return nil, fmt.Errorf("project not found for package %s: %w", packageName, err)
	}
	return &project, nil
}

// GetAllProjects gets all projects
func (ps *ProjectService) GetAllProjects() ([]*models.Project, error) {
	var projects []*models.Project
	err := database.GetDB().Find(&projects).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// CreateProject creates a new project
func (ps *ProjectService) CreateProject(project *models.Project) error {
	if err := database.GetDB().Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	logging.Infof("Project created - project: %s", project.ProjectID)
	return nil
}

// UpdateProject updates an existing project
func (ps *ProjectService) UpdateProject(projectID string, updates map[string]interface{}) error {
	result := database.GetDB().Model(&models.Project{}).
		Where("project_id = ?", projectID).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}

// DeleteProject deletes a project
func (ps *ProjectService) DeleteProject(projectID string) error {
	result := database.GetDB().Where("project_id = ?", projectID).Delete(&models.Project{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete project: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("project not found: %s", projectID)
	}
	return nil
}
